// Package relay 实现 SSDP 中继核心
//
// 每个接收绑定一个读循环，循环内按序执行完整流水线：
//
//	receive → 跳数准入 → 访问控制 → 规则分发 → 执行动作（发送）
//
// 同一绑定的报文按到达顺序处理和发送，不同绑定并行。
// 运行期错误不外泄：发送失败计为 send-failed，
// 读循环遇到致命错误只将该绑定标记为降级并退出，其它绑定不受影响。
//
// 动作：
//   - block：丢弃
//   - forward：跳数减一后原样发往每个目标，跳数耗尽时丢弃
//   - proxy：由 proxy.Responder 构造响应，经接收绑定单播回源地址
//   - dial：以本实例标记发起新的 M-SEARCH，发起即忘，限速并去重
package relay
