// Package dispatch 实现 M-SEARCH 动作分发
//
// 规则在加载时编译为不可变的匹配器，Classify 按顺序求值，
// 第一条匹配的规则生效。没有规则匹配时返回默认的 block 规则（fail closed），
// 因此每个报文都恰好得到 block / forward / proxy / dial 之一。
//
// 匹配条件中的 method 与 st 需要读取报文内容，只在规则确实用到时才解析，
// 且每次 Classify 至多解析一次。
package dispatch
