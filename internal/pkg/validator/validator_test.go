package validator

import (
	"testing"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidEmployeeID(t *testing.T) {
	valid := []string{"E1", "EMP-0042", "1024", "staff_7.a"}
	invalid := []string{"", " ", "-E1", "E 1", "E1/../x", "abcdefghijabcdefghijabcdefghijabcdefghijabcdefghijK"}
	for _, id := range valid {
		if !IsValidEmployeeID(id) {
			t.Errorf("IsValidEmployeeID(%q) = false, want true", id)
		}
	}
	for _, id := range invalid {
		if IsValidEmployeeID(id) {
			t.Errorf("IsValidEmployeeID(%q) = true, want false", id)
		}
	}
}

func TestIsValidDeviceID(t *testing.T) {
	valid := []string{"0199a3f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b", "kiosk-front-desk"}
	invalid := []string{"", "short", "has space in it", "semi;colon-device"}
	for _, id := range valid {
		if !IsValidDeviceID(id) {
			t.Errorf("IsValidDeviceID(%q) = false, want true", id)
		}
	}
	for _, id := range invalid {
		if IsValidDeviceID(id) {
			t.Errorf("IsValidDeviceID(%q) = true, want false", id)
		}
	}
}

func TestIsValidCoordinates(t *testing.T) {
	if !IsValidLatitude(90) || !IsValidLatitude(-90) || IsValidLatitude(90.01) {
		t.Error("latitude bounds are wrong")
	}
	if !IsValidLongitude(180) || !IsValidLongitude(-180) || IsValidLongitude(-180.5) {
		t.Error("longitude bounds are wrong")
	}
}

func TestIsValidClockTime(t *testing.T) {
	valid := []string{"10:00", "00:00", "23:59"}
	invalid := []string{"24:00", "10", "10:60", "ten"}
	for _, s := range valid {
		if _, ok := IsValidClockTime(s); !ok {
			t.Errorf("IsValidClockTime(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if _, ok := IsValidClockTime(s); ok {
			t.Errorf("IsValidClockTime(%q) = true, want false", s)
		}
	}
}

func TestValidationErrors(t *testing.T) {
	errs := ValidationErrors{
		{Field: "employee_id", Message: "employee_id is required"},
		{Field: "latitude", Message: "latitude must be between -90 and 90"},
	}
	if got := errs.Error(); got != "employee_id: employee_id is required; latitude: latitude must be between -90 and 90" {
		t.Errorf("Error() = %q", got)
	}
	m := errs.ToMap()
	if len(m) != 2 || m["latitude"] == "" {
		t.Errorf("ToMap() = %v", m)
	}
}
