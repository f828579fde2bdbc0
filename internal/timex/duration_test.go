package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDuration_UnmarshalJSON_String(t *testing.T) {
	var d Duration
	err := json.Unmarshal([]byte(`"90s"`), &d)
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, d.Duration)
}

func TestDuration_UnmarshalJSON_Number(t *testing.T) {
	var d Duration
	err := json.Unmarshal([]byte(`1000000000`), &d)
	require.NoError(t, err)
	require.Equal(t, time.Second, d.Duration)
}

func TestDuration_UnmarshalJSON_BadString(t *testing.T) {
	var d Duration
	err := json.Unmarshal([]byte(`"ninety"`), &d)
	require.Error(t, err)
}

func TestDuration_UnmarshalJSON_WrongType(t *testing.T) {
	var d Duration
	err := json.Unmarshal([]byte(`true`), &d)
	require.ErrorIs(t, err, ErrInvalidDuration)
}

func TestDuration_MarshalJSON(t *testing.T) {
	d := Duration{Duration: 2 * time.Minute}
	b, err := json.Marshal(d)
	require.NoError(t, err)
	require.Equal(t, `"2m0s"`, string(b))
}
