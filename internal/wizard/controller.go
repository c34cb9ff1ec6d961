// Package wizard drives an intake through an ordered list of steps with
// per-step validation and a repeated sub-wizard for group members.
package wizard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sportello-uk/sportello-backend/internal/attachments"
	"github.com/sportello-uk/sportello-backend/internal/pricing"
)

var (
	ErrFrozen        = errors.New("intake is frozen")
	ErrFirstStep     = errors.New("already at the first step")
	ErrFinalStep     = errors.New("final step reached")
	ErrUnknownField  = errors.New("unknown field")
	ErrInvalidValue  = errors.New("invalid field value")
	ErrMemberIndex   = errors.New("group member index out of range")
	ErrInvalidState  = errors.New("invalid wizard state")
	ErrNoGroupStep   = errors.New("form has no group members")
	ErrNoDefinition  = errors.New("wizard definition has no steps")
	ErrAttachmentCap = errors.New("too many attachments")
)

// Pricer computes the running total for an intake.
type Pricer interface {
	Quote(in Intake) (pricing.Quote, error)
}

// Definition is the static shape of a form's wizard.
type Definition struct {
	Steps []Step
	// MaxGroup is the exclusive upper bound on the group count; zero means
	// the form has no group members.
	MaxGroup int
	// MaxAttachments caps the main attachment list; zero means one.
	MaxAttachments int
	Pricer         Pricer
}

// StepError is a validation failure scoped to one step and, for the group
// step, one member.
type StepError struct {
	Step    int    `json:"step"`
	Sub     int    `json:"sub"`
	Name    string `json:"step_name"`
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *StepError) Error() string {
	return e.Message
}

// State is the serialisable controller state.
type State struct {
	Step   int        `json:"step"`
	Sub    int        `json:"sub"`
	Intake Intake     `json:"intake"`
	Error  *StepError `json:"error,omitempty"`
	Frozen bool       `json:"frozen"`
}

type Controller struct {
	def    Definition
	locale string
	state  State
}

// New mounts an empty intake at the first step.
func New(def Definition, locale string) (*Controller, error) {
	if len(def.Steps) == 0 {
		return nil, ErrNoDefinition
	}
	return &Controller{def: def, locale: locale, state: State{Intake: NewIntake()}}, nil
}

// Restore rebuilds a controller from persisted state.
func Restore(def Definition, locale string, st State) (*Controller, error) {
	c, err := New(def, locale)
	if err != nil {
		return nil, err
	}
	if st.Step < 0 || st.Step >= len(def.Steps) || st.Sub < 0 {
		return nil, fmt.Errorf("%w: step %d/%d", ErrInvalidState, st.Step, st.Sub)
	}
	if st.Intake.Fields == nil {
		st.Intake.Fields = map[string]string{}
	}
	if len(st.Intake.Members) != st.Intake.GroupCount {
		return nil, fmt.Errorf("%w: %d members for group count %d", ErrInvalidState, len(st.Intake.Members), st.Intake.GroupCount)
	}
	c.state = st
	return c, nil
}

// State returns a deep copy of the current state.
func (c *Controller) State() State {
	st := c.state
	st.Intake = c.state.Intake.Clone()
	if c.state.Error != nil {
		e := *c.state.Error
		st.Error = &e
	}
	return st
}

func (c *Controller) Definition() Definition {
	return c.def
}

func (c *Controller) Intake() Intake {
	return c.state.Intake.Clone()
}

func (c *Controller) Position() (step, sub int) {
	return c.state.Step, c.state.Sub
}

func (c *Controller) Current() Step {
	return c.def.Steps[c.state.Step]
}

func (c *Controller) Err() *StepError {
	return c.state.Error
}

func (c *Controller) Frozen() bool {
	return c.state.Frozen
}

// AtFinalStep reports whether no step follows the current position.
func (c *Controller) AtFinalStep() bool {
	return c.next(c.state.Step) < 0 && !c.moreMembers()
}

// Total prices the intake as it stands.
func (c *Controller) Total() (pricing.Quote, error) {
	if c.def.Pricer == nil {
		return pricing.Quote{}, errors.New("form has no pricing")
	}
	return c.def.Pricer.Quote(c.state.Intake)
}

// Advance validates the current step (or current member) and moves forward.
// At the last step it returns ErrFinalStep once the step validates.
func (c *Controller) Advance() error {
	if c.state.Frozen {
		return ErrFrozen
	}
	if err := c.checkCurrent(); err != nil {
		return err
	}
	if c.moreMembers() {
		c.state.Sub++
		return nil
	}
	next := c.next(c.state.Step)
	if next < 0 {
		return ErrFinalStep
	}
	c.state.Step = next
	c.state.Sub = 0
	return nil
}

// Retreat walks back one page, leaving a group step from its last member.
func (c *Controller) Retreat() error {
	if c.state.Frozen {
		return ErrFrozen
	}
	c.state.Error = nil
	if c.Current().Repeat && c.state.Sub > 0 {
		c.state.Sub--
		return nil
	}
	prev := c.prev(c.state.Step)
	if prev < 0 {
		return ErrFirstStep
	}
	c.state.Step = prev
	c.state.Sub = 0
	if c.def.Steps[prev].Repeat {
		c.state.Sub = c.state.Intake.GroupCount - 1
	}
	return nil
}

// SetGroupCount clamps n to [0, MaxGroup) and resizes the member list.
// Members at surviving indices keep their data. The sub-wizard restarts at
// the first member.
func (c *Controller) SetGroupCount(n int) (int, error) {
	if c.state.Frozen {
		return 0, ErrFrozen
	}
	if c.def.MaxGroup <= 0 {
		return 0, ErrNoGroupStep
	}
	if n < 0 {
		n = 0
	}
	if n > c.def.MaxGroup-1 {
		n = c.def.MaxGroup - 1
	}

	in := &c.state.Intake
	switch {
	case n < len(in.Members):
		in.Members = in.Members[:n]
	case n > len(in.Members):
		in.Members = append(in.Members, make([]GroupMember, n-len(in.Members))...)
	}
	in.GroupCount = n
	c.state.Sub = 0
	c.state.Error = nil

	if c.Current().Repeat && n == 0 {
		if next := c.next(c.state.Step); next >= 0 {
			c.state.Step = next
		} else {
			c.state.Step = c.prev(c.state.Step)
		}
	}
	return n, nil
}

// Set merges one value into the intake. Keys must be declared on a
// non-repeated step.
func (c *Controller) Set(key, value string) error {
	if c.state.Frozen {
		return ErrFrozen
	}
	f, ok := c.lookup(key, false)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	value = strings.TrimSpace(value)
	switch {
	case f.Kind == KindChoice && value != "" && !contains(f.Options, value):
		return fmt.Errorf("%w: %s", ErrInvalidValue, key)
	case f.Kind == KindBool:
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s", err, key)
		}
		value = strconv.FormatBool(b)
	}
	if err := c.state.Intake.set(key, value); err != nil {
		return fmt.Errorf("%w: %s", err, key)
	}
	c.clearErrorFor(key)
	return nil
}

// SetMember merges one value into group member i.
func (c *Controller) SetMember(i int, key, value string) error {
	if c.state.Frozen {
		return ErrFrozen
	}
	if i < 0 || i >= len(c.state.Intake.Members) {
		return fmt.Errorf("%w: %d", ErrMemberIndex, i)
	}
	if _, ok := c.lookup(key, true); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	if err := c.state.Intake.Members[i].set(key, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("%w: %s", err, key)
	}
	c.clearErrorFor(key)
	return nil
}

// AddAttachment attaches an encoded file to the main intake. Forms with a
// single document replace it.
func (c *Controller) AddAttachment(att attachments.Attachment) error {
	if c.state.Frozen {
		return ErrFrozen
	}
	limit := c.def.MaxAttachments
	if limit <= 1 {
		c.state.Intake.Attachments = []attachments.Attachment{att}
	} else {
		if len(c.state.Intake.Attachments) >= limit {
			return fmt.Errorf("%w: limit %d", ErrAttachmentCap, limit)
		}
		c.state.Intake.Attachments = append(c.state.Intake.Attachments, att)
	}
	c.clearErrorFor("attachment")
	return nil
}

// SetMemberAttachment attaches an encoded file to group member i.
func (c *Controller) SetMemberAttachment(i int, att attachments.Attachment) error {
	if c.state.Frozen {
		return ErrFrozen
	}
	if i < 0 || i >= len(c.state.Intake.Members) {
		return fmt.Errorf("%w: %d", ErrMemberIndex, i)
	}
	c.state.Intake.Members[i].Attachment = &att
	c.clearErrorFor("attachment")
	return nil
}

// ValidateAll checks every step in order. The controller is moved to the
// first failing step so the error is shown where it can be fixed.
func (c *Controller) ValidateAll() error {
	for i, step := range c.def.Steps {
		if step.Repeat {
			for sub, m := range c.state.Intake.Members {
				if vio := step.check(memberValues{m: m}); vio != nil {
					return c.fail(i, sub, vio)
				}
			}
			continue
		}
		if vio := step.check(c.state.Intake); vio != nil {
			return c.fail(i, 0, vio)
		}
	}
	c.state.Error = nil
	return nil
}

// Freeze validates the whole intake and locks it. The returned copy is what
// gets handed to payment.
func (c *Controller) Freeze() (Intake, error) {
	if c.state.Frozen {
		return c.Intake(), nil
	}
	if err := c.ValidateAll(); err != nil {
		return Intake{}, err
	}
	c.state.Frozen = true
	return c.Intake(), nil
}

// Unfreeze makes the intake editable again without touching its contents.
func (c *Controller) Unfreeze() {
	c.state.Frozen = false
}

// SetError records an externally produced error against the current step.
func (c *Controller) SetError(code, message string) {
	c.state.Error = &StepError{
		Step:    c.state.Step,
		Sub:     c.state.Sub,
		Name:    c.Current().Name,
		Code:    code,
		Message: message,
	}
}

// JumpToFinal positions the controller on the last step.
func (c *Controller) JumpToFinal() {
	c.state.Step = len(c.def.Steps) - 1
	for c.state.Step > 0 && c.skipped(c.state.Step) {
		c.state.Step--
	}
	c.state.Sub = 0
}

func (c *Controller) checkCurrent() error {
	step := c.Current()
	var v Values = c.state.Intake
	if step.Repeat {
		if c.state.Sub >= len(c.state.Intake.Members) {
			return fmt.Errorf("%w: member %d", ErrInvalidState, c.state.Sub)
		}
		v = memberValues{m: c.state.Intake.Members[c.state.Sub]}
	}
	if vio := step.check(v); vio != nil {
		return c.fail(c.state.Step, c.state.Sub, vio)
	}
	c.state.Error = nil
	return nil
}

func (c *Controller) fail(step, sub int, vio *Violation) *StepError {
	def := c.def.Steps[step]
	msg := render(c.locale, def, vio)
	if def.Repeat {
		msg = fmt.Sprintf(memberPrefix.In(c.locale), sub+1) + msg
	}
	c.state.Step = step
	c.state.Sub = sub
	c.state.Error = &StepError{
		Step:    step,
		Sub:     sub,
		Name:    def.Name,
		Field:   vio.Field,
		Code:    vio.Code,
		Message: msg,
	}
	return c.state.Error
}

func (c *Controller) moreMembers() bool {
	return c.Current().Repeat && c.state.Sub < c.state.Intake.GroupCount-1
}

func (c *Controller) skipped(i int) bool {
	return c.def.Steps[i].Repeat && c.state.Intake.GroupCount == 0
}

func (c *Controller) next(from int) int {
	for i := from + 1; i < len(c.def.Steps); i++ {
		if !c.skipped(i) {
			return i
		}
	}
	return -1
}

func (c *Controller) prev(from int) int {
	for i := from - 1; i >= 0; i-- {
		if !c.skipped(i) {
			return i
		}
	}
	return -1
}

func (c *Controller) lookup(key string, member bool) (Field, bool) {
	for _, step := range c.def.Steps {
		if step.Repeat != member {
			continue
		}
		if f, ok := step.field(key); ok {
			return f, true
		}
	}
	return Field{}, false
}

func (c *Controller) clearErrorFor(key string) {
	if c.state.Error != nil && c.state.Error.Field == key {
		c.state.Error = nil
	}
}

func contains(options []string, value string) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}

// MemberTarget parses an attachment target of the form "member:<i>".
func MemberTarget(target string) (int, bool) {
	rest, ok := strings.CutPrefix(target, "member:")
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(rest)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}
