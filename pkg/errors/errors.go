// Package errors provides the error and warning types used across tabtune.
//
// Errors are structured: each type carries the offending field, parameter or
// column set so a caller can report exactly what went wrong without parsing
// message strings. Constructors attach a stack trace via cockroachdb/errors.
package errors

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Warning handling
//
// ===========================================================================

var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("tabtune-warning: %v\n", w)
	}
	// zerolog sink, set lazily to avoid an import cycle with pkg/log
	zerologWarnFunc func(warning error)
)

// SetWarningHandler replaces the process-wide warning handler.
// Warnings are advisory (for example a poorly fitting model) and must never
// be promoted to errors by the library itself.
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc routes warnings through a zerolog-backed sink.
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn emits a warning through the configured sink.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}
	if warningHandler != nil {
		warningHandler(w)
	}
}

// FitQualityWarning reports that a fitted model performs poorly on its
// resampled validation data. It is informational only.
type FitQualityWarning struct {
	Family string
	Metric string
	Value  float64
}

func (w *FitQualityWarning) Error() string {
	return fmt.Sprintf("%s: poor fit (%s = %.4f)", w.Family, w.Metric, w.Value)
}

// MarshalZerologObject adds structured warning fields to a zerolog event.
func (w *FitQualityWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("family", w.Family).
		Str("metric", w.Metric).
		Float64("value", w.Value).
		Str("type", "FitQualityWarning")
}

// NewFitQualityWarning creates a new FitQualityWarning.
func NewFitQualityWarning(family, metric string, value float64) *FitQualityWarning {
	return &FitQualityWarning{Family: family, Metric: metric, Value: value}
}

// ===========================================================================
//
//	Structured error types
//
// ===========================================================================

// DataShapeError reports malformed input data: a field that should be
// numeric but is not, or a row with a missing required field.
type DataShapeError struct {
	Field  string
	Reason string
}

func (e *DataShapeError) Error() string {
	return fmt.Sprintf("tabtune: malformed data in field %q: %s", e.Field, e.Reason)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *DataShapeError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("field", e.Field).
		Str("reason", e.Reason).
		Str("type", "DataShapeError")
}

// NewDataShapeError creates a new DataShapeError with a stack trace.
func NewDataShapeError(field, reason string) error {
	return errors.WithStack(&DataShapeError{Field: field, Reason: reason})
}

// ConfigIncompatibleError reports a hyperparameter or resampling
// configuration that the chosen model family cannot accept, or data that is
// incompatible with the family (for example an unencoded categorical column).
type ConfigIncompatibleError struct {
	Family string
	Param  string
	Reason string
}

func (e *ConfigIncompatibleError) Error() string {
	return fmt.Sprintf("tabtune: %s: incompatible configuration %q: %s", e.Family, e.Param, e.Reason)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *ConfigIncompatibleError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("family", e.Family).
		Str("param", e.Param).
		Str("reason", e.Reason).
		Str("type", "ConfigIncompatibleError")
}

// NewConfigIncompatibleError creates a new ConfigIncompatibleError with a stack trace.
func NewConfigIncompatibleError(family, param, reason string) error {
	return errors.WithStack(&ConfigIncompatibleError{Family: family, Param: param, Reason: reason})
}

// SchemaMismatchError reports that the columns of an evaluation table do not
// match the columns the model was trained on.
type SchemaMismatchError struct {
	Op       string
	Expected []string
	Got      []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("tabtune: %s: schema mismatch. Expected columns [%s], got [%s]",
		e.Op, strings.Join(e.Expected, ", "), strings.Join(e.Got, ", "))
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *SchemaMismatchError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Strs("expected", e.Expected).
		Strs("got", e.Got).
		Str("type", "SchemaMismatchError")
}

// NewSchemaMismatchError creates a new SchemaMismatchError with a stack trace.
func NewSchemaMismatchError(op string, expected, got []string) error {
	return errors.WithStack(&SchemaMismatchError{Op: op, Expected: expected, Got: got})
}

// NotFittedError is returned when Predict or Transform is called on a model
// that has not been fitted.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("tabtune: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a new NotFittedError with a stack trace.
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError reports an input whose dimension differs from the expected one.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("tabtune: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError creates a new DimensionError with a stack trace.
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValueError reports an invalid argument value.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("tabtune: %s: %s", e.Op, e.Message)
}

// NewValueError creates a new ValueError with a stack trace.
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ===========================================================================
//
//	Re-exports so callers need only this package
//
// ===========================================================================

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with a message, preserving the stack trace.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error with a stack trace.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error with a stack trace.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates err with a stack trace at the point it was called.
func WithStack(err error) error {
	return errors.WithStack(err)
}
