// Package socket 实现接口绑定与套接字管理
//
// 每个配置的接口对应一个 Binding，按方向拥有：
//   - 接收套接字：绑定 listen_address:port，在该接口上加入组播组，
//     开启控制消息（TTL、源、目的、接口索引）
//   - 发送套接字：绑定 接口IPv4:0，设置组播出接口，关闭组播回环，
//     配置 DSCP 时设置 TOS
//
// 同一绑定上的发送串行化；接收由调用方保证单读者。
//
// 错误分类：
//   - 启动时打开失败返回 *types.BindError
//   - 接口名无法解析返回 *types.ConfigError
//   - 运行期读写错误返回 *types.IOError，瞬时错误在内部重试
package socket
