package services

import (
	"encoding/json"
	"fmt"
	"time"
)

// Date decodes a calendar day sent as "2006-01-02" or as an RFC 3339
// timestamp.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid date %q: %w", s, ErrValidation)
}

func (d *Date) ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func (in *OrderInput) UnmarshalJSON(b []byte) error {
	type plain OrderInput
	aux := struct {
		*plain
		WeddingDate *Date `json:"wedding_date"`
	}{plain: (*plain)(in)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	in.WeddingDate = aux.WeddingDate.ptr()
	return nil
}

func (p *OrderPatch) UnmarshalJSON(b []byte) error {
	type plain OrderPatch
	aux := struct {
		*plain
		WeddingDate *Date `json:"wedding_date"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	p.WeddingDate = aux.WeddingDate.ptr()
	return nil
}

func (in *SizeInput) UnmarshalJSON(b []byte) error {
	type plain SizeInput
	aux := struct {
		*plain
		MeasuredAt *Date `json:"measured_at"`
	}{plain: (*plain)(in)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	in.MeasuredAt = aux.MeasuredAt.ptr()
	return nil
}
