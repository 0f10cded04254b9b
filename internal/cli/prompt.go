package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"racoonsmeal/internal/model"
)

// Prompter asks for values missing from the command line. Each method fills only
// the empty fields it is given.
type Prompter interface {
	Login(ctx context.Context, username *string, password *string) error
	Register(ctx context.Context, req *model.RegisterRequest) error
	Profile(ctx context.Context, form *profileForm) error
}

// profileForm carries the completion form as text, the way it is typed.
type profileForm struct {
	Bio           string
	Age           string
	Gender        string
	HeightCM      string
	WeightKG      string
	ActivityLevel string
	Goal          string
}

func newProfileForm(fields model.ProfileFields) profileForm {
	return profileForm{
		Bio:           fields.Bio,
		Age:           strconv.Itoa(fields.Age),
		Gender:        fields.Gender,
		HeightCM:      strconv.FormatFloat(fields.HeightCM, 'f', -1, 64),
		WeightKG:      strconv.FormatFloat(fields.WeightKG, 'f', -1, 64),
		ActivityLevel: fields.ActivityLevel,
		Goal:          fields.Goal,
	}
}

func (f profileForm) fields() (model.ProfileFields, error) {
	age, err := strconv.Atoi(strings.TrimSpace(f.Age))
	if err != nil {
		return model.ProfileFields{}, fmt.Errorf("age: %q is not a whole number", f.Age)
	}
	height, err := strconv.ParseFloat(strings.TrimSpace(f.HeightCM), 64)
	if err != nil {
		return model.ProfileFields{}, fmt.Errorf("height: %q is not a number", f.HeightCM)
	}
	weight, err := strconv.ParseFloat(strings.TrimSpace(f.WeightKG), 64)
	if err != nil {
		return model.ProfileFields{}, fmt.Errorf("weight: %q is not a number", f.WeightKG)
	}

	return model.ProfileFields{
		Bio:           f.Bio,
		Age:           age,
		Gender:        f.Gender,
		HeightCM:      height,
		WeightKG:      weight,
		ActivityLevel: f.ActivityLevel,
		Goal:          f.Goal,
	}, nil
}

type huhPrompter struct{}

func required(name string) func(string) error {
	return func(value string) error {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func number(name string) func(string) error {
	return func(value string) error {
		if _, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err != nil {
			return fmt.Errorf("%s must be a number", name)
		}
		return nil
	}
}

func runFields(ctx context.Context, fields []huh.Field) error {
	if len(fields) == 0 {
		return nil
	}
	err := huh.NewForm(huh.NewGroup(fields...)).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return errors.New("cancelled")
	}
	return err
}

func (huhPrompter) Login(ctx context.Context, username *string, password *string) error {
	var fields []huh.Field
	if *username == "" {
		fields = append(fields, huh.NewInput().Title("Username").Value(username).Validate(required("username")))
	}
	if *password == "" {
		fields = append(fields, huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(password).Validate(required("password")))
	}
	return runFields(ctx, fields)
}

func (huhPrompter) Register(ctx context.Context, req *model.RegisterRequest) error {
	var fields []huh.Field
	if req.Username == "" {
		fields = append(fields, huh.NewInput().Title("Username").Value(&req.Username).Validate(required("username")))
	}
	if req.Email == "" {
		fields = append(fields, huh.NewInput().Title("Email").Value(&req.Email).Validate(required("email")))
	}
	if req.Password == "" {
		fields = append(fields, huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&req.Password).Validate(required("password")))
	}
	if req.Password2 == "" {
		fields = append(fields, huh.NewInput().Title("Confirm password").EchoMode(huh.EchoModePassword).Value(&req.Password2).Validate(required("password confirmation")))
	}
	return runFields(ctx, fields)
}

func (huhPrompter) Profile(ctx context.Context, form *profileForm) error {
	return runFields(ctx, []huh.Field{
		huh.NewText().Title("Bio").Value(&form.Bio),
		huh.NewInput().Title("Age").Value(&form.Age).Validate(number("age")),
		huh.NewSelect[string]().Title("Gender").Options(huh.NewOptions(model.Genders...)...).Value(&form.Gender),
		huh.NewInput().Title("Height (cm)").Value(&form.HeightCM).Validate(number("height")),
		huh.NewInput().Title("Weight (kg)").Value(&form.WeightKG).Validate(number("weight")),
		huh.NewSelect[string]().Title("Activity level").Options(huh.NewOptions(model.ActivityLevels...)...).Value(&form.ActivityLevel),
		huh.NewSelect[string]().Title("Goal").Options(huh.NewOptions(model.Goals...)...).Value(&form.Goal),
	})
}
