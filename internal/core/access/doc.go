// Package access 实现源地址访问控制
//
// Filter 在加载配置时编译一次，之后只读，可被多个读循环并发调用。
//
// 判定顺序（任一命中即返回）：
//
//  1. BlockSelf 且报文来自本实例（实例标记相同，或源 ip:port 是本进程的发送地址）→ self-loop
//  2. 源地址命中 BlockCIDRs → blocked-cidr
//  3. AllowCIDRs 非空且源地址都不命中 → not-allowlisted
//  4. 放行
//
// 阻止总是优先于允许。
package access
