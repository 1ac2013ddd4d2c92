// Package assist is the boundary to the hosted language model: it turns
// free-text statements into candidate constraint items and drives the
// chat flow. The adapter never mutates shared state; it returns typed
// outcomes and the controller applies them.
package assist

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"chaintwin/constraint"
	"chaintwin/llm"
	"chaintwin/logger"
)

// Completer is the slice of llm.Client the adapter needs.
type Completer interface {
	Complete(prompt string) (string, error)
	CompleteWithTools(prompt string, tools []llm.Tool) (*llm.Result, error)
}

// LearnRuleTool is the single tool exposed to the model. The model either
// invokes it with a structured rule or answers in plain text.
var LearnRuleTool = llm.Tool{
	Name:        "learn_rule",
	Description: "从用户描述中提取一条供应链业务规则并保存",
	Parameters: map[string]any{
		"label":       map[string]any{"type": "string", "description": "规则的简短名称"},
		"description": map[string]any{"type": "string", "description": "规则的完整描述"},
		"impactLevel": map[string]any{"type": "string", "enum": []string{"low", "medium", "high"}},
		"pseudoLogic": map[string]any{"type": "string", "description": "规则的伪代码形式"},
	},
	Required: []string{"label", "description", "impactLevel"},
}

// extractedRule is the tool-call payload shape.
type extractedRule struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	ImpactLevel string `json:"impactLevel"`
	PseudoLogic string `json:"pseudoLogic"`
}

// Outcome is what a chat turn produced. Rule is non-nil when the model
// invoked learn_rule; the caller decides whether to store it.
type Outcome struct {
	Reply string
	Rule  *constraint.Item
}

// Assistant wraps the model client. The generation counter guards against
// stale responses: a reply is applied only if no newer request superseded
// it while the call was in flight.
type Assistant struct {
	client Completer
	gen    atomic.Int64
}

func New(client Completer) *Assistant {
	return &Assistant{client: client}
}

// Begin marks the start of a request and returns its generation token.
func (a *Assistant) Begin() int64 {
	return a.gen.Add(1)
}

// Alive reports whether the given request is still the latest one.
func (a *Assistant) Alive(token int64) bool {
	return a.gen.Load() == token
}

// Cancel invalidates any in-flight request. The network call itself is
// not aborted; its response is dropped on arrival.
func (a *Assistant) Cancel() {
	a.gen.Add(1)
}

// Extract is the manual-form entry point: it asks the model to invoke
// learn_rule on the text and returns a candidate item. It never fails;
// any error or non-tool answer yields the parse-failure stub.
func (a *Assistant) Extract(text string) constraint.Item {
	prompt := fmt.Sprintf(`用户描述了一条供应链业务约束："%s"
请调用 learn_rule 将其整理为结构化规则。`, text)

	res, err := a.client.CompleteWithTools(prompt, []llm.Tool{LearnRuleTool})
	if err != nil {
		logger.Warn(logger.StatusChat, "Rule extraction failed: %v", err)
		return fallbackItem(text)
	}
	if res.Call == nil || res.Call.Name != LearnRuleTool.Name {
		logger.Warn(logger.StatusChat, "Model answered without invoking learn_rule")
		return fallbackItem(text)
	}

	item, err := normalize(res.Call.Args)
	if err != nil {
		logger.Warn(logger.StatusChat, "Malformed learn_rule payload: %v", err)
		return fallbackItem(text)
	}
	return item
}

// Chat is the conversational entry point. Plain-text answers pass through
// unchanged; a learn_rule invocation yields an acknowledgment plus a
// candidate rule for the caller to store. Failures degrade to a busy
// message, never an error.
func (a *Assistant) Chat(text string) Outcome {
	prompt := fmt.Sprintf(`你是供应链数字孪生系统的助手。用户说："%s"
如果用户在陈述一条业务规则或约束，调用 learn_rule 保存它；否则直接简短回答。`, text)

	res, err := a.client.CompleteWithTools(prompt, []llm.Tool{LearnRuleTool})
	if err != nil {
		logger.Warn(logger.StatusChat, "Chat call failed: %v", err)
		return Outcome{Reply: "服务繁忙，请稍后再试"}
	}

	if res.Call != nil && res.Call.Name == LearnRuleTool.Name {
		item, err := normalize(res.Call.Args)
		if err != nil {
			logger.Warn(logger.StatusChat, "Malformed learn_rule payload: %v", err)
			return Outcome{Reply: "服务繁忙，请稍后再试"}
		}
		return Outcome{
			Reply: fmt.Sprintf("已学习规则：%s", item.Label),
			Rule:  &item,
		}
	}

	return Outcome{Reply: res.Text}
}

// normalize maps a learn_rule payload into a ConstraintItem.
func normalize(args json.RawMessage) (constraint.Item, error) {
	var raw extractedRule
	if err := json.Unmarshal(args, &raw); err != nil {
		return constraint.Item{}, err
	}
	if raw.Label == "" || raw.Description == "" {
		return constraint.Item{}, fmt.Errorf("missing required fields in %s", string(args))
	}

	level := constraint.ImpactLevel(raw.ImpactLevel)
	switch level {
	case constraint.ImpactLow, constraint.ImpactMedium, constraint.ImpactHigh:
	default:
		level = constraint.ImpactMedium
	}

	return constraint.Item{
		ID:          uuid.NewString(),
		Label:       raw.Label,
		Description: raw.Description,
		Enabled:     true,
		ImpactLevel: level,
		Source:      constraint.SourceAI,
		Logic: &constraint.Logic{
			RelationType:      constraint.RelationTrigger,
			ActionDescription: raw.PseudoLogic,
		},
	}, nil
}

// fallbackItem is the manual-form failure stub.
func fallbackItem(text string) constraint.Item {
	return constraint.Item{
		ID:          uuid.NewString(),
		Label:       "解析失败",
		Description: text,
		Enabled:     true,
		ImpactLevel: constraint.ImpactMedium,
		Formula:     "N/A",
		Source:      constraint.SourceAI,
	}
}
