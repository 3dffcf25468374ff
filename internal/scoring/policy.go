package scoring

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"

	"grantreview/internal/review"
)

//go:embed policy.yaml
var defaultPolicyYAML []byte

// PolicyDef is the YAML form of an escalation policy.
type PolicyDef struct {
	NotifyWhen           string            `yaml:"notify_when"`
	OverallStatus        []StatusRule      `yaml:"overall_status"`
	DefaultStatus        string            `yaml:"default_status"`
	NotificationPriority map[string]string `yaml:"notification_priority"`
	DefaultPriority      string            `yaml:"default_priority"`
}

// StatusRule maps a condition to an overall status.
type StatusRule struct {
	When   string `yaml:"when"`
	Status string `yaml:"status"`
}

type compiledRule struct {
	program *vm.Program
	status  review.OverallStatus
}

// Policy is a compiled escalation policy. It is immutable and safe for
// concurrent use.
type Policy struct {
	notify        *vm.Program
	rules         []compiledRule
	defaultStatus review.OverallStatus
	priorities    map[review.RiskLevel]review.NotificationPriority
	defaultPrio   review.NotificationPriority
}

// notifyEnv is deliberately limited to score and level.
func notifyEnv(score float64, level review.RiskLevel) map[string]any {
	return map[string]any{"score": score, "level": string(level)}
}

func statusEnv(level review.RiskLevel, status review.ComplianceStatus) map[string]any {
	return map[string]any{"level": string(level), "compliance_status": string(status)}
}

// DefaultPolicy compiles the embedded policy. It panics only if the
// embedded file is invalid, which tests guard against.
func DefaultPolicy() *Policy {
	p, err := ParsePolicy(defaultPolicyYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded policy: %v", err))
	}
	return p
}

// LoadPolicy reads and compiles a policy file. An empty path yields the default policy.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy %s: %w", path, err)
	}
	return ParsePolicy(data)
}

// ParsePolicy compiles a YAML policy definition.
func ParsePolicy(data []byte) (*Policy, error) {
	var def PolicyDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	if def.NotifyWhen == "" {
		return nil, fmt.Errorf("policy: notify_when is required")
	}

	notify, err := expr.Compile(def.NotifyWhen, expr.Env(notifyEnv(0, "")), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile notify_when: %w", err)
	}

	p := &Policy{
		notify:        notify,
		defaultStatus: review.OverallStatus(def.DefaultStatus),
		priorities:    make(map[review.RiskLevel]review.NotificationPriority, len(def.NotificationPriority)),
		defaultPrio:   review.NotificationPriority(def.DefaultPriority),
	}
	if p.defaultStatus == "" {
		p.defaultStatus = review.ApprovedWithConditions
	}
	if p.defaultPrio == "" {
		p.defaultPrio = review.NotifyNormal
	}
	for i, r := range def.OverallStatus {
		prog, err := expr.Compile(r.When, expr.Env(statusEnv("", "")), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile overall_status[%d]: %w", i, err)
		}
		p.rules = append(p.rules, compiledRule{program: prog, status: review.OverallStatus(r.Status)})
	}
	for level, prio := range def.NotificationPriority {
		p.priorities[review.RiskLevel(level)] = review.NotificationPriority(prio)
	}
	return p, nil
}

// notifyFloorScore is the score below which a run always escalates.
const notifyFloorScore = 75

// mustNotify is the fixed escalation rule. notify_when can add cases to it
// but never remove any.
func mustNotify(score float64, level review.RiskLevel) bool {
	return score < notifyFloorScore || level == review.RiskMediumHigh || level == review.RiskHigh
}

// RequiresNotification decides escalation from the overall score and level only.
func (p *Policy) RequiresNotification(score float64, level review.RiskLevel) bool {
	if mustNotify(score, level) {
		return true
	}
	out, err := expr.Run(p.notify, notifyEnv(score, level))
	if err != nil {
		// Compiled with AsBool over a fixed env; a runtime error means escalate.
		return true
	}
	b, _ := out.(bool)
	return b
}

// OverallStatus derives the run disposition from the risk level and verdict.
func (p *Policy) OverallStatus(level review.RiskLevel, status review.ComplianceStatus) review.OverallStatus {
	env := statusEnv(level, status)
	for _, r := range p.rules {
		out, err := expr.Run(r.program, env)
		if err != nil {
			continue
		}
		if b, _ := out.(bool); b {
			return r.status
		}
	}
	return p.defaultStatus
}

// Priority maps a risk level to a notification priority.
func (p *Policy) Priority(level review.RiskLevel) review.NotificationPriority {
	if prio, ok := p.priorities[level]; ok {
		return prio
	}
	return p.defaultPrio
}
