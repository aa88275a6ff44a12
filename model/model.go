package model

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = newValidate()

func newValidate() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
	})
	return validate
}

// New parses and validates a YAML case model.
//
// If the model is invalid, an [Errors] value, listing all problems, is returned.
func New(yamlReader io.Reader) (*Model, error) {
	decoder := yaml.NewDecoder(yamlReader)
	decoder.KnownFields(true)

	var document yamlModel
	if err := decoder.Decode(&document); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("failed to decode YAML: document is empty")
		}
		return nil, fmt.Errorf("failed to decode YAML: %v", err)
	}

	if err := validate.Struct(document); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return nil, fmt.Errorf("failed to validate YAML: %v", err)
		}

		var errs Errors
		for _, fieldError := range validationErrors {
			errs = append(errs, Error{
				Pointer: namespacePointer(fieldError.Namespace()),
				Type:    fieldError.Tag(),
				Detail:  fieldErrorDetail(fieldError),
			})
		}
		return nil, errs
	}

	m := Model{}

	var errs Errors
	caseIds := make(map[string]bool, len(document.Cases))
	for _, c := range document.Cases {
		if caseIds[c.Id] {
			errs = append(errs, Error{Pointer: "/" + c.Id, Type: "unique", Detail: "case ID must be unique"})
			continue
		}
		caseIds[c.Id] = true

		p := parser{elementIds: make(map[string]bool)}

		planModel := p.parseElement(c.PlanModel, nil, "/"+c.Id)
		planModel.Type = ElementCasePlanModel

		errs = append(errs, p.errs...)

		m.Cases = append(m.Cases, &Case{Id: c.Id, Name: c.Name, PlanModel: planModel})
	}

	if len(errs) != 0 {
		return nil, errs
	}

	return &m, nil
}

type Model struct {
	Cases []*Case
}

func (m *Model) CaseById(id string) *Case {
	for _, c := range m.Cases {
		if c.Id == id {
			return c
		}
	}
	return nil
}

// A Case is a case definition, consisting of a case plan model and its plan items.
type Case struct {
	Id        string
	Name      string
	PlanModel *Element
}

// ElementById finds the case plan model or any plan item of the case.
func (c *Case) ElementById(id string) *Element {
	for _, element := range c.PlanModel.AllElements() {
		if element.Id == id {
			return element
		}
	}
	return nil
}

// Scripts returns the names of all script resources, referenced by listeners of the case.
func (c *Case) Scripts() []string {
	var names []string
	for _, element := range c.PlanModel.AllElements() {
		for _, listeners := range [][]*Listener{element.Listeners, element.VariableListeners} {
			for _, listener := range listeners {
				if listener.Script != nil && listener.Script.Resource != "" {
					names = append(names, listener.Script.Resource)
				}
			}
		}
	}
	return names
}

// Error is a problem of a case model, located by a pointer like /caseId/planModelId/humanTaskId.
type Error struct {
	Pointer string
	Type    string
	Detail  string
}

func (e Error) String() string {
	return fmt.Sprintf("%s: %s: %s", e.Type, e.Pointer, e.Detail)
}

type Errors []Error

func (e Errors) Error() string {
	s := make([]string, len(e))
	for i := range e {
		s[i] = e[i].String()
	}
	return "invalid case model:\n" + strings.Join(s, "\n")
}

type parser struct {
	elementIds map[string]bool
	errs       Errors
}

func (p *parser) addError(pointer string, errorType string, detail string) {
	p.errs = append(p.errs, Error{Pointer: pointer, Type: errorType, Detail: detail})
}

func (p *parser) parseElement(item *yamlPlanItem, parent *Element, parentPointer string) *Element {
	pointer := parentPointer + "/" + item.Id

	element := &Element{
		Id:   item.Id,
		Name: item.Name,

		AutoComplete:     item.AutoComplete,
		ManualActivation: item.ManualActivation,

		Parent: parent,
	}

	if p.elementIds[item.Id] {
		p.addError(pointer, "unique", "plan item ID must be unique within a case")
	}
	p.elementIds[item.Id] = true

	if parent != nil {
		element.Type = mapYamlElementType(item.Type)
		if element.Type == 0 {
			p.addError(pointer, "type", fmt.Sprintf("unsupported plan item type %q", item.Type))
		}
	} else if item.Type != "" {
		p.addError(pointer, "type", "case plan model must not specify a type")
	}

	if parent == nil && item.ManualActivation {
		p.addError(pointer, "manualActivation", "case plan model cannot be activated manually")
	}
	if element.Type == ElementMilestone && item.ManualActivation {
		p.addError(pointer, "manualActivation", "milestone cannot be activated manually")
	}

	for i, listener := range item.Listeners {
		listenerPointer := fmt.Sprintf("%s/listeners/%d", pointer, i)
		element.Listeners = append(element.Listeners, p.parseListener(listener, listenerPointer, isExecutionEvent))
	}
	for i, listener := range item.VariableListeners {
		listenerPointer := fmt.Sprintf("%s/variableListeners/%d", pointer, i)
		element.VariableListeners = append(element.VariableListeners, p.parseListener(listener, listenerPointer, isVariableEvent))
	}

	if len(item.Children) != 0 && element.Type != 0 && !element.Type.HasChildren() && parent != nil {
		p.addError(pointer, "children", fmt.Sprintf("plan item of type %s cannot have children", element.Type))
		return element
	}

	for _, child := range item.Children {
		element.Elements = append(element.Elements, p.parseElement(child, element, pointer))
	}

	return element
}

func (p *parser) parseListener(item *yamlListener, pointer string, isEvent func(string) bool) *Listener {
	listener := &Listener{
		Event: item.Event,

		Class:              strings.TrimSpace(item.Class),
		Expression:         strings.TrimSpace(item.Expression),
		DelegateExpression: strings.TrimSpace(item.DelegateExpression),
	}

	if listener.Event != "" && !isEvent(listener.Event) {
		p.addError(pointer+"/event", "event", fmt.Sprintf("unsupported event %q", listener.Event))
	}

	sources := 0
	if listener.Class != "" {
		sources++
	}
	if listener.Expression != "" {
		sources++
		if !IsExpression(listener.Expression) {
			p.addError(pointer+"/expression", "expression", "must be of the form ${...}")
		}
	}
	if listener.DelegateExpression != "" {
		sources++
		if !IsExpression(listener.DelegateExpression) {
			p.addError(pointer+"/delegateExpression", "expression", "must be of the form ${...}")
		}
	}
	if item.Script != nil {
		sources++

		listener.Script = &Script{
			Format:   item.Script.Format,
			Source:   item.Script.Source,
			Resource: item.Script.Resource,
		}

		if (listener.Script.Source == "") == (listener.Script.Resource == "") {
			p.addError(pointer+"/script", "script", "must specify either a source or a resource")
		}
	}

	if sources != 1 {
		p.addError(pointer, "listener", "must specify exactly one of class, expression, delegateExpression or script")
	}

	if len(item.Fields) != 0 && listener.Class == "" && listener.DelegateExpression == "" {
		p.addError(pointer+"/fields", "fields", "fields are only supported by class or delegateExpression listeners")
	}

	for i, field := range item.Fields {
		if (field.StringValue == "") == (field.Expression == "") {
			p.addError(fmt.Sprintf("%s/fields/%d", pointer, i), "field", "must specify either a stringValue or an expression")
		}

		listener.Fields = append(listener.Fields, &Field{
			Name:        field.Name,
			StringValue: field.StringValue,
			Expression:  field.Expression,
		})
	}

	return listener
}

// IsExpression determines if s is an expression of the form ${...}.
func IsExpression(s string) bool {
	return strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") && len(s) > 3
}

// ExpressionBody strips the leading ${ and the trailing } of an expression.
func ExpressionBody(s string) string {
	if !IsExpression(s) {
		return s
	}
	return strings.TrimSpace(s[2 : len(s)-1])
}

// namespacePointer converts a validator namespace like yamlModel.cases[0].planModel.id into /cases/0/planModel/id.
func namespacePointer(namespace string) string {
	var sb strings.Builder

	_, path, _ := strings.Cut(namespace, ".")
	for _, r := range path {
		switch r {
		case '.', '[':
			sb.WriteRune('/')
		case ']':
			continue
		default:
			sb.WriteRune(r)
		}
	}

	return "/" + sb.String()
}

func fieldErrorDetail(fieldError validator.FieldError) string {
	switch fieldError.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must contain at least %s element(s)", fieldError.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", fieldError.Param())
	default:
		return "is invalid"
	}
}

type yamlModel struct {
	Cases []*yamlCase `yaml:"cases" validate:"required,min=1,dive,required"`
}

type yamlCase struct {
	Id        string        `yaml:"id" validate:"required"`
	Name      string        `yaml:"name"`
	PlanModel *yamlPlanItem `yaml:"planModel" validate:"required"`
}

type yamlPlanItem struct {
	Id               string `yaml:"id" validate:"required"`
	Name             string `yaml:"name"`
	Type             string `yaml:"type"`
	AutoComplete     bool   `yaml:"autoComplete"`
	ManualActivation bool   `yaml:"manualActivation"`

	Listeners         []*yamlListener `yaml:"listeners" validate:"dive,required"`
	VariableListeners []*yamlListener `yaml:"variableListeners" validate:"dive,required"`

	Children []*yamlPlanItem `yaml:"children" validate:"dive,required"`
}

type yamlListener struct {
	Event              string       `yaml:"event"`
	Class              string       `yaml:"class"`
	Expression         string       `yaml:"expression"`
	DelegateExpression string       `yaml:"delegateExpression"`
	Script             *yamlScript  `yaml:"script"`
	Fields             []*yamlField `yaml:"fields" validate:"dive,required"`
}

type yamlScript struct {
	Format   string `yaml:"format" validate:"required,oneof=javascript js feel"`
	Source   string `yaml:"source"`
	Resource string `yaml:"resource"`
}

type yamlField struct {
	Name        string `yaml:"name" validate:"required"`
	StringValue string `yaml:"stringValue"`
	Expression  string `yaml:"expression"`
}
