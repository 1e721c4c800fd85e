package placeholder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/alnah/go-rentnotice/internal/extract"
)

// DefaultFeeRate is the service fee charged on the new rent (4.95%).
var DefaultFeeRate = decimal.RequireFromString("0.0495")

// DefaultDateLayout renders dates as YYYY-MM-DD.
const DefaultDateLayout = "2006-01-02"

// Field length limits, in characters.
const (
	MaxFreeTextLength      = 2000
	MaxAddressLength       = 300
	MaxSigneeLength        = 200
	MaxTransactionIDLength = 100
)

// Translator renders free text in the notice's second language.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Terms are the contract fields plus the new rent terms of a notice.
type Terms struct {
	Signees       []string
	Address       string
	TransactionID string
	CurrentRent   string

	NewRent         decimal.Decimal
	FeeRate         *decimal.Decimal // nil selects the resolver's rate
	ServiceFee      *decimal.Decimal // overrides the computed fee
	ApplicationDate time.Time
	EndDate         *time.Time
	FreeText        string
}

// Map is the resolved token-to-text mapping.
type Map struct {
	Values   map[string]string
	Dropped  []string // parties beyond MaxSignees
	Warnings []error  // non-fatal degradations, e.g. ErrTranslationDegraded
}

// Get returns the value of token, or "" when unset.
func (m *Map) Get(token string) string {
	return m.Values[token]
}

// Pairs returns old/new pairs sorted by token for strings.NewReplacer.
func (m *Map) Pairs() []string {
	keys := make([]string, 0, len(m.Values))
	for k := range m.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, k, m.Values[k])
	}
	return pairs
}

// Resolver builds placeholder maps.
type Resolver struct {
	translator Translator
	feeRate    decimal.Decimal
	layout     string
	now        func() time.Time
	logger     logrus.FieldLogger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTranslator sets the free text translator. Nil disables translation.
func WithTranslator(t Translator) Option {
	return func(r *Resolver) { r.translator = t }
}

// WithFeeRate sets the default service fee rate.
func WithFeeRate(rate decimal.Decimal) Option {
	return func(r *Resolver) { r.feeRate = rate }
}

// WithDateLayout sets the Go time layout used for every date token.
func WithDateLayout(layout string) Option {
	return func(r *Resolver) {
		if layout != "" {
			r.layout = layout
		}
	}
}

// WithClock sets the source of today's date.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger for degraded translations.
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a Resolver with the default fee rate and date layout.
func NewResolver(opts ...Option) *Resolver {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	r := &Resolver{
		feeRate: DefaultFeeRate,
		layout:  DefaultDateLayout,
		now:     time.Now,
		logger:  discard,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Validate checks terms before resolution.
// All violations are reported, each as a *FieldError.
func (r *Resolver) Validate(t Terms) error {
	var errs []error

	if !t.NewRent.IsPositive() {
		errs = append(errs, fieldErr("new_rent", "must be a positive amount"))
	}
	if t.ApplicationDate.IsZero() {
		errs = append(errs, fieldErr("application_date", "is required"))
	}
	if t.EndDate != nil && !t.ApplicationDate.IsZero() && t.EndDate.Before(t.ApplicationDate) {
		errs = append(errs, fieldErr("end_date", "must not be before application_date"))
	}
	if t.FeeRate != nil && (t.FeeRate.IsNegative() || t.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1))) {
		errs = append(errs, fieldErr("fee_rate", "must be in [0, 1)"))
	}
	if t.ServiceFee != nil && t.ServiceFee.IsNegative() {
		errs = append(errs, fieldErr("service_fee", "must not be negative"))
	}

	errs = append(errs,
		checkLength("free_text", t.FreeText, MaxFreeTextLength),
		checkLength("address", t.Address, MaxAddressLength),
		checkLength("transaction_id", t.TransactionID, MaxTransactionIDLength),
	)
	for i, name := range t.Signees {
		errs = append(errs, checkLength(fmt.Sprintf("signees[%d]", i), name, MaxSigneeLength))
	}

	return errors.Join(errs...)
}

func checkLength(field, value string, limit int) error {
	if n := utf8.RuneCountInString(value); n > limit {
		return fieldErr(field, "%d characters exceeds limit of %d", n, limit)
	}
	return nil
}

// Resolve validates t and produces its placeholder map.
// A failed translation degrades [FREE_TEXT_EN] to empty and is reported in
// Map.Warnings; it never fails resolution.
func (r *Resolver) Resolve(ctx context.Context, t Terms) (*Map, error) {
	if err := r.Validate(t); err != nil {
		return nil, err
	}

	rate := r.feeRate
	if t.FeeRate != nil {
		rate = *t.FeeRate
	}
	fee := ServiceFee(t.NewRent, rate)
	if t.ServiceFee != nil {
		fee = t.ServiceFee.RoundBank(0)
	}

	m := &Map{Values: make(map[string]string, len(FixedTokens)+MaxSignees)}
	v := m.Values

	v[TokenAddress] = orSentinel(t.Address)
	v[TokenTransactionID] = orSentinel(t.TransactionID)
	v[TokenCurrentRent] = FormatAmount(orSentinel(t.CurrentRent))
	v[TokenNewRent] = t.NewRent.RoundBank(0).String()
	v[TokenServiceFee] = fee.String()
	v[TokenApplicationDate] = t.ApplicationDate.Format(r.layout)
	v[TokenTodaysDate] = r.now().Format(r.layout)
	v[TokenFreeText] = t.FreeText

	v[TokenEndDate] = ""
	v[TokenWhenSE] = untilFurtherNoticeSE
	v[TokenWhenEN] = untilFurtherNoticeEN
	if t.EndDate != nil {
		end := t.EndDate.Format(r.layout)
		v[TokenEndDate] = end
		v[TokenWhenSE] = fmt.Sprintf(throughSE, end)
		v[TokenWhenEN] = fmt.Sprintf(throughEN, end)
	}

	v[TokenFreeTextEN] = r.translate(ctx, t.FreeText, m)

	signees := t.Signees
	if len(signees) > MaxSignees {
		m.Dropped = append(m.Dropped, signees[MaxSignees:]...)
		signees = signees[:MaxSignees]
	}
	for k := 1; k <= MaxSignees; k++ {
		v[SigneeToken(k)] = ""
	}
	for i, name := range signees {
		v[SigneeToken(i+1)] = SigneeLine(i+1, name)
	}

	v[TokenLandlordName] = nth(signees, 0)
	v[TokenTenantName] = nth(signees, 1)

	return m, nil
}

func (r *Resolver) translate(ctx context.Context, text string, m *Map) string {
	if strings.TrimSpace(text) == "" || r.translator == nil {
		return ""
	}
	out, err := r.translator.Translate(ctx, text)
	if err != nil {
		r.logger.WithError(err).Warn("free text translation failed, leaving it empty")
		m.Warnings = append(m.Warnings, fmt.Errorf("%w: %v", ErrTranslationDegraded, err))
		return ""
	}
	return out
}

// ServiceFee returns rent × rate rounded half to even to a whole amount.
func ServiceFee(rent, rate decimal.Decimal) decimal.Decimal {
	return rent.Mul(rate).RoundBank(0)
}

// FormatAmount renders a numeric string with zero decimals.
// Non-numeric input, such as the N/A sentinel, is returned unchanged.
func FormatAmount(s string) string {
	d, err := decimal.NewFromString(strings.Join(strings.Fields(s), ""))
	if err != nil {
		return s
	}
	return d.RoundBank(0).String()
}

// SigneeLine renders the notice line of the k-th party.
// The first party is the landlord; every other party is a tenant.
func SigneeLine(k int, name string) string {
	if k == 1 {
		return fmt.Sprintf(landlordLine, name)
	}
	return fmt.Sprintf(tenantLine, k, name)
}

func orSentinel(s string) string {
	if strings.TrimSpace(s) == "" {
		return extract.NotAvailable
	}
	return s
}

func nth(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}
