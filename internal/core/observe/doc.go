// Package observe 定义中继决策事件与观测接收端
//
// 每个报文的处理结果（拒绝、丢弃、转发、代答、拨测、发送失败等）
// 都以 Event 形式交给 Sink。Fanout 以有界队列异步分发给多个 Sink，
// 队列满时丢弃并计数，不阻塞收发路径。
package observe
