package terminal

import (
	"fmt"

	"github.com/BTreeMap/PromptCanvas/internal/models"
	"github.com/manifoldco/promptui"
)

// promptuiPrompter is the interactive Prompter backed by promptui.
type promptuiPrompter struct{}

var selectTemplates = &promptui.SelectTemplates{
	Label:    "{{ . }}",
	Active:   `{{ "›" | cyan | bold }} {{ . | cyan | bold }}`,
	Inactive: "  {{ . | faint }}",
	Selected: `{{ "✔" | green | bold }} {{ . | bold }}`,
}

func (promptuiPrompter) Select(label string, items []string) (string, error) {
	sel := promptui.Select{
		Label:     label,
		Items:     items,
		Templates: selectTemplates,
		Size:      len(items),
	}
	_, choice, err := sel.Run()
	return choice, err
}

func (promptuiPrompter) Input(label, defaultValue string) (string, error) {
	p := promptui.Prompt{
		Label:     label,
		Default:   defaultValue,
		AllowEdit: true,
		Validate:  validatePromptLength,
	}
	return p.Run()
}

func validatePromptLength(input string) error {
	if len(input) > models.MaxPromptLength {
		return fmt.Errorf("%w (%d > %d)", models.ErrPromptTooLong, len(input), models.MaxPromptLength)
	}
	return nil
}
