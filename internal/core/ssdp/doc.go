// Package ssdp 实现 SSDP 报文的解析与构造
//
// 只覆盖中继需要的部分：M-SEARCH 请求、NOTIFY 通告、200 OK 搜索响应。
// 解析方式与 goupnp/httpu 服务端一致：先去掉行尾空白，再交给 net/http 解析。
//
// 本实例发出的请求带有 X-Relay-Instance 头，用于跨实例识别自身输出。
package ssdp
