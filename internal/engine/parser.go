package engine

import (
	"strings"

	"github.com/talentarc-ai/outreach-platform/internal/model"
)

// StepDraft is one parsed step before it is assigned an ID and a number.
type StepDraft struct {
	Type    model.StepType
	Content string
	Subject string
	Timing  string
}

// ParseSequenceText converts model-generated free text into an ordered
// list of step drafts. It is a single-pass line scanner: a new step opens
// on a boundary line, property lines fill in type/subject/timing, and
// everything else accumulates as content once a type is known.
//
// The parser never fails. Blocks that end without a type or without any
// content are dropped; a pending block at end of input is flushed under
// the same rule. Bullet-prefixed lines count as content like any other.
func ParseSequenceText(text string) []StepDraft {
	var drafts []StepDraft

	inStep := false
	var stepType model.StepType
	var subject, timing string
	var contentLines []string

	flush := func() {
		if inStep && stepType != "" && len(contentLines) > 0 {
			drafts = append(drafts, StepDraft{
				Type:    stepType,
				Content: strings.Join(contentLines, "\n"),
				Subject: subject,
				Timing:  timing,
			})
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)

		switch {
		case isStepBoundary(lower):
			flush()
			inStep = true
			stepType = ""
			subject = ""
			timing = ""
			contentLines = nil

		case strings.Contains(lower, "type:") || strings.Contains(lower, "channel:"):
			stepType = classifyStepType(lower)

		case strings.Contains(lower, "subject:") && stepType == model.StepTypeEmail:
			subject = afterColon(line)

		case strings.Contains(lower, "timing:") || strings.Contains(lower, "day:"):
			timing = afterColon(line)

		case stepType != "":
			contentLines = append(contentLines, line)
		}
	}

	flush()

	return drafts
}

// isStepBoundary reports whether a (lowercased, trimmed) line opens a new
// step block.
func isStepBoundary(lower string) bool {
	return strings.HasPrefix(lower, "step") ||
		strings.HasPrefix(lower, "#") ||
		strings.HasPrefix(lower, "day")
}

// classifyStepType maps a type/channel declaration line to a channel by
// keyword match.
func classifyStepType(lower string) model.StepType {
	switch {
	case strings.Contains(lower, "email"):
		return model.StepTypeEmail
	case strings.Contains(lower, "linkedin"):
		return model.StepTypeLinkedIn
	case strings.Contains(lower, "phone"), strings.Contains(lower, "call"):
		return model.StepTypePhone
	default:
		return model.StepTypeOther
	}
}

func afterColon(line string) string {
	_, rest, found := strings.Cut(line, ":")
	if !found {
		return ""
	}
	return strings.TrimSpace(rest)
}
