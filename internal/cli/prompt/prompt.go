// Package prompt holds the interactive pieces of the CLI: selections and
// hidden password input. Callers check Interactive first and fall back to
// flags when stdin is not a terminal.
package prompt

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"

	"github.com/ecomstore/storefront/internal/models"
	"github.com/ecomstore/storefront/internal/storefront"
)

// Interactive reports whether stdin is a terminal
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Password reads a line without echo
func Password(label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

// Line reads one line of visible input, returning def when it is blank
func Line(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(os.Stderr, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(os.Stderr, "%s: ", label)
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	if line = strings.TrimSpace(line); line == "" {
		return def, nil
	}
	return line, nil
}

type option struct {
	Label string
	Value string
}

var selectTemplates = &promptui.SelectTemplates{
	Label:    "{{ . }}",
	Active:   "> {{ .Label | cyan }}",
	Inactive: "  {{ .Label }}",
	Selected: "{{ .Label | green }}",
}

func choose(label string, options []option, cursor int) (string, error) {
	sel := promptui.Select{
		Label:     label,
		Items:     options,
		Templates: selectTemplates,
		Size:      10,
		CursorPos: cursor,
	}

	index, _, err := sel.Run()
	if err != nil {
		return "", fmt.Errorf("selection cancelled: %w", err)
	}
	return options[index].Value, nil
}

// SelectPaymentMethod shows each method with the total it would charge.
// The cursor starts on preferred when it is one of the methods.
func SelectPaymentMethod(quote func(storefront.PaymentMethod) storefront.Quote, preferred storefront.PaymentMethod) (storefront.PaymentMethod, error) {
	options := make([]option, len(storefront.PaymentMethods))
	cursor := 0
	for i, m := range storefront.PaymentMethods {
		q := quote(m)
		options[i] = option{
			Label: fmt.Sprintf("%s (fee %s, total %s)", m.Label(), q.Fee.Display(), q.Total.Display()),
			Value: string(m),
		}
		if m == preferred {
			cursor = i
		}
	}

	v, err := choose("Payment method", options, cursor)
	if err != nil {
		return "", err
	}
	return storefront.PaymentMethod(v), nil
}

// SelectOrderStatus picks a new status, starting on current
func SelectOrderStatus(current string) (string, error) {
	options := make([]option, len(models.OrderStatuses))
	cursor := 0
	for i, s := range models.OrderStatuses {
		options[i] = option{Label: s, Value: s}
		if s == current {
			cursor = i
		}
	}
	return choose("Order status", options, cursor)
}

// Confirm asks a yes/no question. Anything but yes is false.
func Confirm(label string) bool {
	p := promptui.Prompt{Label: label, IsConfirm: true}
	_, err := p.Run()
	return err == nil
}
