package domain_test

import (
	"errors"
	"testing"
	"time"

	"standby/internal/domain"
)

func validSession() domain.Session {
	return domain.Session{
		Mode:        domain.ModeDetect,
		ThresholdDB: -10,
		FloorDB:     -60,
		Channels:    []int{0},
	}
}

func TestSessionValidate(t *testing.T) {
	s := validSession()
	if err := s.Validate(); err != nil {
		t.Fatalf("valid session rejected: %v", err)
	}
}

func TestSessionValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.Session)
	}{
		{"unknown mode", func(s *domain.Session) { s.Mode = "loud" }},
		{"threshold too low", func(s *domain.Session) { s.ThresholdDB = -61 }},
		{"threshold above zero", func(s *domain.Session) { s.ThresholdDB = 1 }},
		{"floor below -100", func(s *domain.Session) { s.FloorDB = -101 }},
		{"floor at threshold", func(s *domain.Session) { s.FloorDB = s.ThresholdDB }},
		{"no channels", func(s *domain.Session) { s.Channels = nil }},
		{"negative channel", func(s *domain.Session) { s.Channels = []int{-1} }},
		{"negative duration", func(s *domain.Session) { s.Duration = -time.Second }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := validSession()
			tc.mutate(&s)

			err := s.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			var cfgErr *domain.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Errorf("error type: got %T, want *ConfigError", err)
			}
		})
	}
}

func TestSessionValidate_ThresholdIgnoredOutsideDetect(t *testing.T) {
	s := validSession()
	s.Mode = domain.ModeMax
	s.ThresholdDB = 42 // out of range, but unused in max mode

	if err := s.Validate(); err != nil {
		t.Errorf("max mode must not validate the threshold: %v", err)
	}
}

func TestSessionValidateDevice(t *testing.T) {
	info := domain.StreamInfo{Device: "test mic", SampleRate: 44100, Channels: 2}

	s := validSession()
	s.Channels = []int{0, 1}
	if err := s.ValidateDevice(info); err != nil {
		t.Errorf("in-range channels rejected: %v", err)
	}

	s.Channels = []int{5}
	err := s.ValidateDevice(info)
	if err == nil {
		t.Fatal("expected error for channel 5 on a 2-channel device")
	}
	var cfgErr *domain.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("error type: got %T, want *ConfigError", err)
	}
}

func TestChannelStateAverageDB(t *testing.T) {
	var st domain.ChannelState
	if _, ok := st.AverageDB(); ok {
		t.Error("average reported with zero blocks")
	}

	st.SumRMSDB = -60
	st.Blocks = 3
	avg, ok := st.AverageDB()
	if !ok {
		t.Fatal("average missing with 3 blocks")
	}
	if avg != -20 {
		t.Errorf("average: got %f, want -20", avg)
	}
}
