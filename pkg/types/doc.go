// Package types 定义 ssdp-relay 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
//   - envelope.go - Envelope 报文信封（不可变）及改写选项
//   - ids.go      - InstanceTag 实例标记
//   - enums.go    - Action, RejectReason, Direction, Outcome
//   - target.go   - Target 转发/拨测目标
//   - errors.go   - ConfigError, BindError, IOError 及哨兵错误
//
// # 不可变约定
//
// Envelope 构造后不可修改，任何改写（如源地址替换）都通过
// Rewrite 生成新的 Envelope。Payload 在构造和读取时都会复制。
package types
