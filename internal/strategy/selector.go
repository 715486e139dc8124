package strategy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"mend/internal/healing"
	"mend/pkg/logging"
)

// SelectorProbe checks whether a candidate selector resolves to an element
// in the failing test's page. Engines supply it; a nil error means the
// selector matched.
type SelectorProbe func(ctx context.Context, failure healing.TestFailure, selector string) error

// volatileIDPattern matches id fragments that look machine-generated
// (trailing digit runs, hashes), the usual cause of selector rot.
var volatileIDPattern = regexp.MustCompile(`([-_][0-9a-f]{6,}|[-_]\d{2,})$`)

// nthChildPattern matches positional pseudo-selectors that break when rows
// reorder.
var nthChildPattern = regexp.MustCompile(`:nth-(child|of-type)\(\d+\)`)

// SelectorUpdate repairs broken element locators. It derives candidate
// rewrites from the failing selector (strip positional pseudo-classes, drop
// volatile id fragments, relax exact attribute matches) and probes each one
// against the live page. Repairs that worked before are remembered in an
// alias map persisted across runs, so a selector that rotted once is fixed
// instantly the next time.
type SelectorUpdate struct {
	probe SelectorProbe

	mu        sync.Mutex
	aliases   map[string]string
	aliasPath string
}

// NewSelectorUpdate creates the selector repair strategy. aliasPath is where
// the learned selector alias map is persisted; empty disables persistence.
func NewSelectorUpdate(probe SelectorProbe, aliasPath string) *SelectorUpdate {
	return &SelectorUpdate{
		probe:     probe,
		aliases:   make(map[string]string),
		aliasPath: aliasPath,
	}
}

func (s *SelectorUpdate) Name() string    { return "selector-update" }
func (s *SelectorUpdate) Version() string { return "2.0.1" }

func (s *SelectorUpdate) SupportedFailureTypes() []healing.FailureType {
	return []healing.FailureType{healing.FailureElementNotFound}
}

// Initialize loads the persisted alias map. Part of the healing.Lifecycle
// capability, called once by the registry at startup.
func (s *SelectorUpdate) Initialize(ctx context.Context) error {
	if s.aliasPath == "" {
		return nil
	}
	data, err := os.ReadFile(s.aliasPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading selector aliases: %w", err)
	}

	aliases := make(map[string]string)
	if err := yaml.Unmarshal(data, &aliases); err != nil {
		return fmt.Errorf("parsing selector aliases %s: %w", s.aliasPath, err)
	}

	s.mu.Lock()
	s.aliases = aliases
	s.mu.Unlock()
	logging.Debug("Strategy", "selector-update: loaded %d selector aliases from %s", len(aliases), s.aliasPath)
	return nil
}

// Shutdown persists the alias map.
func (s *SelectorUpdate) Shutdown(ctx context.Context) error {
	if s.aliasPath == "" {
		return nil
	}

	s.mu.Lock()
	data, err := yaml.Marshal(s.aliases)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encoding selector aliases: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.aliasPath), 0o755); err != nil {
		return fmt.Errorf("creating selector alias directory: %w", err)
	}
	if err := os.WriteFile(s.aliasPath, data, 0o644); err != nil {
		return fmt.Errorf("writing selector aliases: %w", err)
	}
	return nil
}

// Heal extracts the broken selector from the failure context, generates
// candidate rewrites, and probes them in order of decreasing specificity.
func (s *SelectorUpdate) Heal(ctx context.Context, failure healing.TestFailure, hctx healing.Context) (healing.AttemptResult, error) {
	selector := extractSelector(failure)
	if selector == "" {
		return healing.AttemptResult{
			Success: false,
			Message: "failure context carries no selector to repair",
		}, nil
	}

	candidates := s.candidateSelectors(selector)
	if len(candidates) == 0 {
		return healing.AttemptResult{
			Success:    false,
			Confidence: 0.05,
			Actions: []healing.Action{{
				Type:        "update_selector",
				Description: "no viable rewrite for selector",
				Parameters:  map[string]interface{}{"selector": selector},
				Timestamp:   time.Now(),
				Result:      healing.ActionSkipped,
			}},
			Message: fmt.Sprintf("no viable rewrite for selector %q", selector),
		}, nil
	}

	var actions []healing.Action
	for i, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return healing.AttemptResult{Success: false, Actions: actions, Message: err.Error()}, nil
		}

		action := healing.Action{
			Type:        "update_selector",
			Description: fmt.Sprintf("try rewrite %d/%d", i+1, len(candidates)),
			Parameters:  map[string]interface{}{"from": selector, "to": candidate},
			Timestamp:   time.Now(),
		}

		if s.probe == nil {
			// Without a live page to validate against, propose the most
			// conservative rewrite and let the engine confirm.
			action.Result = healing.ActionSuccess
			action.Message = "rewrite proposed without validation"
			return healing.AttemptResult{
				Success:    true,
				Confidence: 0.45,
				Actions:    append(actions, action),
				Message:    fmt.Sprintf("proposed selector rewrite %q", candidate),
			}, nil
		}

		if err := s.probe(ctx, failure, candidate); err != nil {
			action.Result = healing.ActionFailure
			action.Message = err.Error()
			actions = append(actions, action)
			continue
		}

		action.Result = healing.ActionSuccess
		actions = append(actions, action)

		// Aliases replayed from memory validated on a previous run too,
		// which makes the repair more trustworthy.
		confidence := 0.7
		if i == 0 && s.alias(selector) == candidate {
			confidence = 0.8
		}
		s.remember(selector, candidate)
		logging.Info("Strategy", "selector-update: repaired %q -> %q for test %s", selector, candidate, failure.TestID)
		return healing.AttemptResult{
			Success:    true,
			Confidence: confidence,
			Actions:    actions,
			Message:    fmt.Sprintf("selector repaired to %q", candidate),
		}, nil
	}

	return healing.AttemptResult{
		Success:    false,
		Confidence: 0.1,
		Actions:    actions,
		Message:    fmt.Sprintf("none of %d rewrites matched", len(candidates)),
	}, nil
}

// candidateSelectors derives rewrites for a broken selector, most specific
// first. A remembered alias always goes first.
func (s *SelectorUpdate) candidateSelectors(selector string) []string {
	var candidates []string
	seen := map[string]bool{selector: true}
	add := func(candidate string) {
		candidate = strings.TrimSpace(candidate)
		if candidate != "" && !seen[candidate] {
			seen[candidate] = true
			candidates = append(candidates, candidate)
		}
	}

	if alias := s.alias(selector); alias != "" {
		add(alias)
	}

	// Positional pseudo-classes break when rows reorder.
	add(nthChildPattern.ReplaceAllString(selector, ""))

	// Machine-generated id suffixes rot on every deploy.
	if strings.Contains(selector, "#") {
		add(volatileIDPattern.ReplaceAllString(selector, ""))
	}

	// Exact attribute matches relax to substring matches.
	if strings.Contains(selector, "=") && !strings.Contains(selector, "*=") {
		add(strings.Replace(selector, "=", "*=", 1))
	}

	// Last resort: keep only the final segment of a descendant chain.
	if parts := strings.Fields(selector); len(parts) > 1 {
		add(parts[len(parts)-1])
	}

	return candidates
}

func (s *SelectorUpdate) alias(selector string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aliases[selector]
}

func (s *SelectorUpdate) remember(selector, replacement string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aliases[selector] = replacement
}

// extractSelector pulls the failing selector from the failure context.
func extractSelector(failure healing.TestFailure) string {
	if failure.Context.Custom != nil {
		if sel, ok := failure.Context.Custom["selector"].(string); ok {
			return sel
		}
	}
	// Engines that don't set context often quote the selector in the
	// message: `element not found: "button.submit"`.
	if start := strings.Index(failure.Message, `"`); start != -1 {
		rest := failure.Message[start+1:]
		if end := strings.Index(rest, `"`); end != -1 {
			return rest[:end]
		}
	}
	return ""
}
