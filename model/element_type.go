package model

import "fmt"

// ElementType describes the different CMMN plan item types.
type ElementType int

const (
	ElementCasePlanModel ElementType = iota + 1
	ElementHumanTask
	ElementMilestone
	ElementStage
	ElementTask
)

func MapElementType(s string) ElementType {
	switch s {
	case "CASE_PLAN_MODEL":
		return ElementCasePlanModel
	case "HUMAN_TASK":
		return ElementHumanTask
	case "MILESTONE":
		return ElementMilestone
	case "STAGE":
		return ElementStage
	case "TASK":
		return ElementTask
	default:
		return 0
	}
}

// mapYamlElementType maps the type of a plan item, as it is written in a case model.
func mapYamlElementType(s string) ElementType {
	switch s {
	case "humanTask":
		return ElementHumanTask
	case "milestone":
		return ElementMilestone
	case "stage":
		return ElementStage
	case "task":
		return ElementTask
	default:
		return 0
	}
}

func (v ElementType) MarshalJSON() ([]byte, error) {
	s := v.String()
	if s == "" {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", s)), nil
}

func (v ElementType) String() string {
	switch v {
	case ElementCasePlanModel:
		return "CASE_PLAN_MODEL"
	case ElementHumanTask:
		return "HUMAN_TASK"
	case ElementMilestone:
		return "MILESTONE"
	case ElementStage:
		return "STAGE"
	case ElementTask:
		return "TASK"
	default:
		return ""
	}
}

func (v *ElementType) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) > 2 {
		s = s[1 : len(s)-1]
		*v = MapElementType(s)
	}
	if *v == 0 {
		return fmt.Errorf("invalid element type data %s", s)
	}
	return nil
}

// HasChildren determines if plan items of the type can contain other plan items.
func (v ElementType) HasChildren() bool {
	return v == ElementCasePlanModel || v == ElementStage
}
