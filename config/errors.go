package config

import "github.com/GameOverStudios/deeperhub/xerrors"

// 错误定义
var (
	// ErrNotLoaded 在 Load 之前调用了读取方法
	ErrNotLoaded = xerrors.New("config: not loaded, call Load first")

	// ErrValidationFailed 配置验证失败
	ErrValidationFailed = xerrors.New("config: validation failed")
)
