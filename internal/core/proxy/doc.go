// Package proxy 实现 proxy 动作的响应构造
//
// Responder 记录中继观察到的 NOTIFY 通告（goupnp ssdp.Registry），
// 收到 M-SEARCH 时用仍在有效期内的匹配通告合成 200 OK 响应；
// 没有匹配且配置了 Location 时，以本实例身份回复。
//
// 过期判断使用注入的 clock.Clock，测试中可用 clock.NewMock() 控制时间。
package proxy
