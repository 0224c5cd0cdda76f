package fixed

import (
	"encoding/json"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Millis
	}{
		{name: "zero", input: "0", want: 0},
		{name: "whole", input: "12", want: 1_200_000},
		{name: "one fractional digit", input: "12.3", want: 1_230_000},
		{name: "full precision", input: "10.12345", want: 1_012_345},
		{name: "smallest step", input: "0.00001", want: 1},
		{name: "leading zeros", input: "007.5", want: 750_000},
		{name: "large", input: "86400000", want: 8_640_000_000_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "dot only", input: "."},
		{name: "trailing dot", input: "1."},
		{name: "leading dot", input: ".5"},
		{name: "excess precision", input: "1.123456"},
		{name: "negative", input: "-1"},
		{name: "explicit plus", input: "+1"},
		{name: "exponent", input: "1e3"},
		{name: "leading space", input: " 1"},
		{name: "trailing space", input: "1 "},
		{name: "comma", input: "10,5"},
		{name: "hex", input: "0x10"},
		{name: "words", input: "fast"},
		{name: "overflow", input: "999999999999999999999"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, err := Parse(tt.input); err == nil {
				t.Errorf("Parse(%q) = %d, want error", tt.input, got)
			}
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	tests := []struct {
		value Millis
		want  string
	}{
		{value: 0, want: "0.00000"},
		{value: 1, want: "0.00001"},
		{value: 1_012_345, want: "10.12345"},
		{value: 1_200_000, want: "12.00000"},
		{value: 8_640_000_000_000, want: "86400000.00000"},
	}
	for _, tt := range tests {
		if got := tt.value.String(); got != tt.want {
			t.Errorf("Millis(%d).String() = %q, want %q", tt.value, got, tt.want)
		}
		back, err := Parse(tt.want)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", tt.want, err)
		}
		if back != tt.value {
			t.Errorf("Parse(%q) = %d, want %d", tt.want, back, tt.value)
		}
	}
}

func TestMeanOfIdenticalValues(t *testing.T) {
	ten := FromInt(10)
	values := []Millis{ten, ten, ten, ten}
	if got := MeanOf(values); got != ten {
		t.Errorf("MeanOf(4x10ms) = %s, want %s", got, ten)
	}
}

func TestMeanHalfUpBoundary(t *testing.T) {
	tests := []struct {
		name   string
		values []Millis
		want   string
	}{
		// 10.12345 + 10.12346 averages to 10.123455, which sits exactly
		// on the half step and must round up.
		{name: "exact half rounds up", values: []Millis{1_012_345, 1_012_346}, want: "10.12346"},
		// 10.12344 + 10.12345 averages to 10.123445, again a half step.
		{name: "half on even quotient", values: []Millis{1_012_344, 1_012_345}, want: "10.12345"},
		// Sum 30.37033 over 3 leaves remainder 1/3, below half.
		{name: "below half rounds down", values: []Millis{1_012_344, 1_012_344, 1_012_345}, want: "10.12344"},
		// Sum 30.37035 over 3 leaves remainder 2/3, above half.
		{name: "above half rounds up", values: []Millis{1_012_345, 1_012_345, 1_012_345}, want: "10.12345"},
		{name: "single value unchanged", values: []Millis{1_012_345}, want: "10.12345"},
		{name: "empty is zero", values: nil, want: "0.00000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MeanOf(tt.values).String(); got != tt.want {
				t.Errorf("MeanOf(%v) = %s, want %s", tt.values, got, tt.want)
			}
		})
	}
}

func TestMeanWithExplicitCount(t *testing.T) {
	// Failed probes keep their slot in the denominator while adding
	// nothing to the sum: 3 successes at 12ms over 4 slots.
	sum := FromInt(36)
	if got := Mean(sum, 4).String(); got != "9.00000" {
		t.Errorf("Mean(36ms, 4) = %s, want 9.00000", got)
	}
}

func TestFloat64(t *testing.T) {
	if got := Millis(1_012_345).Float64(); got != 10.12345 {
		t.Errorf("Float64() = %v, want 10.12345", got)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(Millis(1_012_345))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `"10.12345"` {
		t.Errorf("Marshal = %s, want \"10.12345\"", data)
	}

	var back Millis
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back != 1_012_345 {
		t.Errorf("Unmarshal = %d, want 1012345", back)
	}

	if err := json.Unmarshal([]byte(`"1.2.3"`), &back); err == nil {
		t.Error("Unmarshal accepted a malformed value")
	}
}
