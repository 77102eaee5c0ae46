package breaker

import (
	"github.com/GameOverStudios/deeperhub/breaker/types"
	"github.com/GameOverStudios/deeperhub/xerrors"
)

// 仅属于组件装配层的错误，状态机相关的哨兵错误定义在 types 包
var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("breaker: config is nil")

	// ErrKeyEmpty 服务名为空
	ErrKeyEmpty = xerrors.New("breaker: service key is empty")
)

// 重导出 types 包的哨兵错误，调用方无需额外 import
var (
	ErrOpenState         = types.ErrOpenState
	ErrTooManyRequests   = types.ErrTooManyRequests
	ErrCallTimeout       = types.ErrCallTimeout
	ErrNotFound          = types.ErrNotFound
	ErrAlreadyRegistered = types.ErrAlreadyRegistered
	ErrInvalidPolicy     = types.ErrInvalidPolicy
)
