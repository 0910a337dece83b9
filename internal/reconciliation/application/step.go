package application

import (
	siteconfig "cashup/internal/siteconfig/domain"
)

// StepKind tags a wizard step.
type StepKind int

const (
	StepRegister StepKind = iota
	StepSalesAndPOS
	StepBankingReview
)

func (k StepKind) String() string {
	switch k {
	case StepRegister:
		return "register"
	case StepSalesAndPOS:
		return "sales_pos"
	case StepBankingReview:
		return "banking_review"
	default:
		return "unknown"
	}
}

// Step identifies a wizard page independently of its position.
type Step struct {
	Kind          StepKind
	RegisterIndex int
}

// RegisterStep is the count page for register i (zero based).
func RegisterStep(i int) Step { return Step{Kind: StepRegister, RegisterIndex: i} }

// StepDescriptor is what a renderer needs for one step.
type StepDescriptor struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
}

// StepCount is the number of wizard steps for cfg.
func StepCount(cfg siteconfig.Config) int { return cfg.Registers.Count + 2 }

// StepAt resolves a one based step number.
func StepAt(cfg siteconfig.Config, n int) (Step, bool) {
	switch {
	case n < 1 || n > StepCount(cfg):
		return Step{}, false
	case n <= cfg.Registers.Count:
		return RegisterStep(n - 1), true
	case n == cfg.Registers.Count+1:
		return Step{Kind: StepSalesAndPOS}, true
	default:
		return Step{Kind: StepBankingReview}, true
	}
}

// Number is the one based position of s in cfg. A register index beyond the
// configured count maps to the last register.
func (s Step) Number(cfg siteconfig.Config) int {
	switch s.Kind {
	case StepRegister:
		i := s.RegisterIndex
		if i < 0 {
			i = 0
		}
		if i >= cfg.Registers.Count {
			i = cfg.Registers.Count - 1
		}
		return i + 1
	case StepSalesAndPOS:
		return cfg.Registers.Count + 1
	default:
		return cfg.Registers.Count + 2
	}
}

// Label is the display label of s.
func (s Step) Label(cfg siteconfig.Config) string {
	switch s.Kind {
	case StepRegister:
		if s.RegisterIndex >= 0 && s.RegisterIndex < len(cfg.Registers.Names) {
			return cfg.Registers.Names[s.RegisterIndex]
		}
		return siteconfig.RegisterLabel(s.RegisterIndex)
	case StepSalesAndPOS:
		return "Sales & POS"
	default:
		return "Banking & Review"
	}
}

// Steps lists every step of cfg in order.
func Steps(cfg siteconfig.Config) []StepDescriptor {
	out := make([]StepDescriptor, 0, StepCount(cfg))
	for n := 1; n <= StepCount(cfg); n++ {
		s, _ := StepAt(cfg, n)
		out = append(out, StepDescriptor{Index: n, Label: s.Label(cfg), Kind: s.Kind.String()})
	}
	return out
}
