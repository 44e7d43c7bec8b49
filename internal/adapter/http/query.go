package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/couchcryptid/rbn-top-calls/internal/dashboard"
	"github.com/couchcryptid/rbn-top-calls/internal/domain"
	"github.com/go-playground/validator/v10"
)

// queryParams mirrors the dashboard form.
type queryParams struct {
	From  string `validate:"required,datetime=2006-01-02"`
	To    string `validate:"required,datetime=2006-01-02"`
	Band  string `validate:"required,oneof=all 160m 80m 60m 40m 30m 20m 17m 15m 12m 10m"`
	Top   int    `validate:"min=1,max=2000"`
	Fetch bool
}

// parseQuery reads the form values, filling gaps from the defaults.
func (s *Server) parseQuery(r *http.Request) (dashboard.Query, error) {
	v := r.URL.Query()
	def := s.opts.Defaults

	p := queryParams{
		From:  v.Get("from"),
		To:    v.Get("to"),
		Band:  v.Get("band"),
		Top:   def.TopN,
		Fetch: def.Fetch,
	}
	if p.From == "" {
		p.From = def.From.Format(domain.DayLayout)
	}
	if p.To == "" {
		p.To = def.To.Format(domain.DayLayout)
	}
	if p.Band == "" {
		p.Band = s.opts.Filter.Band
	}
	if raw := v.Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return dashboard.Query{}, fmt.Errorf("top: %q is not a number", raw)
		}
		p.Top = n
	}
	if raw := v.Get("fetch"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return dashboard.Query{}, fmt.Errorf("fetch: %q is not a boolean", raw)
		}
		p.Fetch = b
	}

	if err := s.validate.Struct(p); err != nil {
		return dashboard.Query{}, describe(err)
	}

	from, err := domain.ParseDay(p.From)
	if err != nil {
		return dashboard.Query{}, err
	}
	to, err := domain.ParseDay(p.To)
	if err != nil {
		return dashboard.Query{}, err
	}
	if to.Before(from) {
		return dashboard.Query{}, fmt.Errorf("end date %s is before start date %s", p.To, p.From)
	}

	return dashboard.Query{From: from, To: to, Band: p.Band, TopN: p.Top, Fetch: p.Fetch}, nil
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "datetime":
			msgs = append(msgs, fmt.Sprintf("%s: %q is not a YYYY-MM-DD date", field, fe.Value()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s: %q is not one of %s", field, fe.Value(), fe.Param()))
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s: must be between 1 and 2000", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
