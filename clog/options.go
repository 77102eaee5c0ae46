package clog

import "bytes"

// Option 函数式选项，用于配置 Logger 实例
type Option func(*options)

// options 内部选项结构（非导出）
type options struct {
	namespaceParts []string
	buffer         *bytes.Buffer
}

func applyOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithNamespace 设置日志命名空间，支持多级命名空间
//
// 示例：
//
//	// namespace 字段输出 "deeperhub.breaker"
//	clog.New(cfg, clog.WithNamespace("deeperhub", "breaker"))
func WithNamespace(parts ...string) Option {
	return func(o *options) {
		o.namespaceParts = append(o.namespaceParts, parts...)
	}
}

// WithBuffer 将日志写入内存缓冲区，配合 Output: "buffer" 使用（测试用）
func WithBuffer(buf *bytes.Buffer) Option {
	return func(o *options) {
		o.buffer = buf
	}
}
