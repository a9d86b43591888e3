package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"

	"github.com/ducminhle1904/signal-backtester/internal/backtest"
	"github.com/ducminhle1904/signal-backtester/internal/exchange"
	"github.com/ducminhle1904/signal-backtester/pkg/data"
)

// StructValidator validates configurations with struct tags plus the checks tags cannot express
type StructValidator struct {
	validate *validator.Validate
}

// NewValidator creates a validator with the interval and period tags registered
func NewValidator() *StructValidator {
	validate := validator.New()
	_ = validate.RegisterValidation("interval", func(fl validator.FieldLevel) bool {
		_, err := exchange.ParseInterval(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("period", func(fl validator.FieldLevel) bool {
		_, _, err := data.ResolvePeriod(fl.Field().String(), time.Now().UTC())
		return err == nil
	})
	return &StructValidator{validate: validate}
}

// Validate checks a *RunConfig or *SweepConfig
func (v *StructValidator) Validate(cfg interface{}) error {
	switch c := cfg.(type) {
	case *RunConfig:
		return v.validateRun(c)
	case *SweepConfig:
		return v.validateSweep(c)
	default:
		return fmt.Errorf("expected *RunConfig or *SweepConfig, got %T", cfg)
	}
}

func (v *StructValidator) validateRun(cfg *RunConfig) error {
	if err := v.validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", describe(err))
	}
	return nil
}

func (v *StructValidator) validateSweep(cfg *SweepConfig) error {
	if err := v.validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid sweep config: %w", describe(err))
	}

	seen := make(map[string]bool, len(cfg.Axes))
	for _, axis := range cfg.Axes {
		if seen[axis.Param] {
			return fmt.Errorf("invalid sweep config: parameter %s is swept twice", axis.Param)
		}
		seen[axis.Param] = true

		// each axis on its own so an error names the offending parameter
		grid := backtest.Grid{Base: cfg.Run.Policy, Axes: []backtest.Axis{axis}}
		if _, err := grid.Jobs(); err != nil {
			return fmt.Errorf("invalid sweep config: axis %s: %w", axis.Param, err)
		}
	}
	return nil
}

// describe turns validator field errors into one readable error
func describe(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		msgs = append(msgs, fmt.Sprintf("%s: %v violates %s", trimNamespace(fe.Namespace()), fe.Value(), rule))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// trimNamespace drops the root struct name, "RunConfig.Policy.Variant" -> "Policy.Variant"
func trimNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
