package arrows

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/spacetime/internal/models"
)

// Definition declares an arrow together with its inverse.
// When the inverse names equal the arrow's own names the arrow is its own
// inverse, which is only allowed for the Near type.
type Definition struct {
	Long         string              `yaml:"long" json:"long"`
	Short        string              `yaml:"short" json:"short"`
	InverseLong  string              `yaml:"inverse_long" json:"inverse_long"`
	InverseShort string              `yaml:"inverse_short" json:"inverse_short"`
	SemanticType models.SemanticType `yaml:"sttype" json:"sttype"`
}

// SelfInverse reports whether the definition names a single arrow.
func (d Definition) SelfInverse() bool {
	return d.Long == d.InverseLong && d.Short == d.InverseShort
}

// Validate validates the definition.
func (d Definition) Validate() error {
	if err := validation.ValidateStruct(&d,
		validation.Field(&d.Long, validation.Required),
		validation.Field(&d.Short, validation.Required),
		validation.Field(&d.InverseLong, validation.Required),
		validation.Field(&d.InverseShort, validation.Required),
		validation.Field(&d.SemanticType, validation.Min(models.NegExpress), validation.Max(models.Express)),
	); err != nil {
		return err
	}
	if d.SelfInverse() && d.SemanticType != models.Near {
		return fmt.Errorf("arrow %q: only near arrows may be their own inverse", d.Long)
	}
	if !d.SelfInverse() && (d.Long == d.InverseLong || d.Short == d.InverseShort) {
		return fmt.Errorf("arrow %q: inverse must differ in both names or neither", d.Long)
	}
	return nil
}

// DefaultVocabulary returns the arrows every graph starts with.
func DefaultVocabulary() []Definition {
	return []Definition{
		{Long: "leads to", Short: "fwd", InverseLong: "comes from", InverseShort: "bwd", SemanticType: models.LeadsTo},
		{Long: "then", Short: "then", InverseLong: "previously", InverseShort: "prev", SemanticType: models.LeadsTo},
		{Long: "causes", Short: "cause", InverseLong: "is caused by", InverseShort: "cause-by", SemanticType: models.LeadsTo},
		{Long: "contains", Short: "contain", InverseLong: "is part of", InverseShort: "part-of", SemanticType: models.Contains},
		{Long: "has component", Short: "has-cpt", InverseLong: "is a component of", InverseShort: "cpt-of", SemanticType: models.Contains},
		{Long: "has property", Short: "prop", InverseLong: "is a property of", InverseShort: "prop-of", SemanticType: models.Express},
		{Long: "has note", Short: "note", InverseLong: "is a note on", InverseShort: "note-on", SemanticType: models.Express},
		{Long: "is near", Short: "near", InverseLong: "is near", InverseShort: "near", SemanticType: models.Near},
		{Long: "is similar to", Short: "sim", InverseLong: "is similar to", InverseShort: "sim", SemanticType: models.Near},
	}
}

// Definer persists arrow pairs. Defining an existing pair is a no-op.
type Definer interface {
	DefineArrowPair(ctx context.Context, st models.SemanticType, long, short, invLong, invShort string) error
}

// Seed validates defs and registers each pair with d. It runs before Load.
func Seed(ctx context.Context, d Definer, defs []Definition) error {
	var errs []error
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("arrows: seed: %w", err)
	}
	for _, def := range defs {
		if err := d.DefineArrowPair(ctx, def.SemanticType, def.Long, def.Short, def.InverseLong, def.InverseShort); err != nil {
			return fmt.Errorf("arrows: seed %q: %w", def.Long, err)
		}
	}
	return nil
}
