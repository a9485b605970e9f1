// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

package models

import (
	"testing"
	"time"
)

func stay(room RoomID, inDay, outDay int) *Reservation {
	return &Reservation{
		ID:       "R-1",
		RoomID:   room,
		CheckIn:  time.Date(2026, 9, inDay, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2026, 9, outDay, 0, 0, 0, 0, time.UTC),
		Guest:    Guest{FirstName: "Ana", LastName: "Kovac"},
		Adults:   2,
		Money:    Money{TotalAmount: 300, Currency: "EUR"},
		Status:   StatusConfirmed,
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b *Reservation
		want bool
	}{
		{"nested", stay("101", 10, 14), stay("101", 11, 13), true},
		{"partial", stay("101", 10, 14), stay("101", 12, 16), true},
		{"back to back", stay("101", 10, 14), stay("101", 14, 16), false},
		{"disjoint", stay("101", 10, 12), stay("101", 13, 15), false},
		{"different rooms", stay("101", 10, 14), stay("102", 10, 14), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("Overlaps must be symmetric, reverse = %v", got)
			}
		})
	}
}

func TestNights(t *testing.T) {
	if got := stay("101", 10, 14).Nights(); got != 4 {
		t.Errorf("Nights = %d, want 4", got)
	}
}

func TestReservationValidate(t *testing.T) {
	if err := stay("101", 10, 14).Validate(); err != nil {
		t.Fatalf("valid reservation rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Reservation)
	}{
		{"missing dates", func(r *Reservation) { r.CheckIn = time.Time{} }},
		{"missing room", func(r *Reservation) { r.RoomID = "" }},
		{"invalid email", func(r *Reservation) { r.Guest.Email = "not-an-address" }},
		{"inverted dates", func(r *Reservation) { r.CheckIn, r.CheckOut = r.CheckOut, r.CheckIn }},
		{"zero nights", func(r *Reservation) { r.CheckOut = r.CheckIn }},
		{"no adults", func(r *Reservation) { r.Adults = 0 }},
		{"missing guest name", func(r *Reservation) { r.Guest.LastName = "" }},
		{"negative total", func(r *Reservation) { r.Money.TotalAmount = -1 }},
		{"commission above total", func(r *Reservation) { r.Money.Commission = 301 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := stay("101", 10, 14)
			tt.mutate(r)
			if err := r.Validate(); err == nil {
				t.Error("Validate must reject")
			}
		})
	}
}
