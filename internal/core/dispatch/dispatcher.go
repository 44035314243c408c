package dispatch

import (
	"fmt"

	"github.com/dep2p/go-ssdprelay/config"
	"github.com/dep2p/go-ssdprelay/internal/util/logger"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

var log = logger.Logger("dispatch")

// defaultRule 没有规则匹配时的策略：丢弃
var defaultRule = &Rule{Name: DefaultRuleName, Index: -1, Action: types.ActionBlock}

// Dispatcher 规则分发器
//
// 编译后不可变，可被多个读循环并发调用。
type Dispatcher struct {
	rules []*Rule
}

// Compile 编译规则列表
//
// forward/dial 的目标为空、目标或匹配条件格式错误时返回 ConfigError。
func Compile(rcs []config.RuleConfig) (*Dispatcher, error) {
	rules := make([]*Rule, 0, len(rcs))
	for i, rc := range rcs {
		field := fmt.Sprintf("rules[%d]", i)

		m, err := compileMatch(field+".match", rc.Match)
		if err != nil {
			return nil, err
		}
		if rc.Action.NeedsTargets() && len(rc.Targets) == 0 {
			return nil, types.NewConfigError(field+".targets", "must not be empty for %s", rc.Action)
		}

		targets := make([]types.Target, 0, len(rc.Targets))
		for j, ts := range rc.Targets {
			t, err := types.ParseTarget(ts)
			if err != nil {
				return nil, &types.ConfigError{Field: fmt.Sprintf("%s.targets[%d]", field, j), Err: err}
			}
			targets = append(targets, t)
		}

		rules = append(rules, &Rule{
			Name:    rc.RuleName(i),
			Index:   i,
			Action:  rc.Action,
			Targets: targets,
			match:   m,
		})
	}

	log.Debug("路由规则已编译", "rules", len(rules))
	return &Dispatcher{rules: rules}, nil
}

// Classify 返回第一条匹配的规则，没有匹配时返回默认 block 规则
//
// 结果永不为 nil。
func (d *Dispatcher) Classify(env types.Envelope) *Rule {
	view := &payloadView{env: env}
	for _, r := range d.rules {
		if r.match.matches(env, view) {
			return r
		}
	}
	return defaultRule
}

// Rules 返回编译后的规则（不含默认规则）
func (d *Dispatcher) Rules() []*Rule {
	return append([]*Rule(nil), d.rules...)
}

// Default 返回默认规则
func (d *Dispatcher) Default() *Rule {
	return defaultRule
}

// BindingTargets 返回所有规则引用的绑定名（去重，按首次出现顺序）
func (d *Dispatcher) BindingTargets() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range d.rules {
		for _, t := range r.Targets {
			if !t.IsBinding() {
				continue
			}
			if _, ok := seen[t.Binding]; ok {
				continue
			}
			seen[t.Binding] = struct{}{}
			out = append(out, t.Binding)
		}
	}
	return out
}
