// Package reminder renders guardian-facing fee reminder messages.
package reminder

import (
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/fee-service/internal/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Fallbacks used when a record or the branding is incomplete.
const (
	DefaultGuardian    = "Parent"
	DefaultStudent     = "your ward"
	DefaultInstitution = "School Administration"
	DefaultCurrency    = "₹"
)

// Composer builds reminder text. It holds no mutable state.
type Composer struct {
	currency string
	printer  *message.Printer
}

// NewComposer creates a composer formatting amounts for locale (a BCP 47
// tag such as "en-IN") with the given currency symbol.
func NewComposer(locale, currencySymbol string) *Composer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse("en-IN")
	}
	if currencySymbol == "" {
		currencySymbol = DefaultCurrency
	}
	return &Composer{
		currency: currencySymbol,
		printer:  message.NewPrinter(tag),
	}
}

// Compose renders the reminder for s. The month named is the month of now.
// Missing fields fall back to the package defaults, so it never fails.
func (c *Composer) Compose(s models.StudentRecord, institutionName string, now time.Time) string {
	guardian := strings.TrimSpace(s.GuardianName())
	if guardian == "" {
		guardian = DefaultGuardian
	}
	student := strings.TrimSpace(s.Name)
	if student == "" {
		student = DefaultStudent
	}
	institution := strings.TrimSpace(institutionName)
	if institution == "" {
		institution = DefaultInstitution
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", guardian)
	fmt.Fprintf(&b, "This is a gentle reminder regarding the fees of %s for the month of %s.\n", student, now.Format("January"))
	fmt.Fprintf(&b, "Pending amount: %s\n\n", c.FormatAmount(s.Total()-s.Paid()))
	b.WriteString("Kindly clear the outstanding dues at the earliest. Please ignore this message if already paid.\n\n")
	fmt.Fprintf(&b, "Regards,\n%s", institution)
	return b.String()
}

// FormatAmount renders an amount with locale digit grouping and the
// currency symbol, e.g. ₹10,000 for en-IN.
func (c *Composer) FormatAmount(amount float64) string {
	amount = models.NonNegative(amount)
	return c.currency + c.printer.Sprintf("%v", number.Decimal(amount, number.MaxFractionDigits(2)))
}
