package appointments

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDoctor(t *testing.T) {
	cases := map[string]string{
		"Jane Doe":        "jane doe",
		"  Dr. Jane Doe ": "jane doe",
		"dr john   doe":   "john doe",
		"":                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeDoctor(in), in)
	}
}

func TestNormalizeSpecialization(t *testing.T) {
	assert.Equal(t, "general_dentist", NormalizeSpecialization(" General Dentist "))
	assert.Equal(t, "orthodontist", NormalizeSpecialization("Orthodontist"))
}

func TestDateSlotHelpers(t *testing.T) {
	key := JoinDateSlot("08-08-2024", "20:00")
	assert.Equal(t, "08-08-2024 20:00", key)
	date, clock := SplitDateSlot(key)
	assert.Equal(t, "08-08-2024", date)
	assert.Equal(t, "20:00", clock)

	found, ok := FindDateSlot("I'd like 05-08-2024 08:00 please")
	assert.True(t, ok)
	assert.Equal(t, "05-08-2024 08:00", found)

	_, ok = FindDateSlot("tomorrow at 8")
	assert.False(t, ok)
}

func TestDisplayHelpers(t *testing.T) {
	assert.Equal(t, "Jane Doe", DisplayName("jane doe"))
	assert.Equal(t, "General Dentist", DisplaySpecialization("general_dentist"))
}
