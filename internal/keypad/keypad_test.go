package keypad

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyValid(t *testing.T) {
	for _, r := range Alphabet {
		assert.True(t, Key(r).Valid(), "key %q", r)
	}
	for _, r := range "EFabz!\x00 " {
		assert.False(t, Key(r).Valid(), "key %q", r)
	}
}

func TestKeyIsControl(t *testing.T) {
	assert.True(t, KeyReset.IsControl())
	assert.True(t, KeySubmit.IsControl())
	assert.False(t, Key('0').IsControl())
	assert.False(t, Key('D').IsControl())
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "7", Key('7').String())
	assert.Equal(t, "#", KeySubmit.String())
	assert.Equal(t, "NONE", NoKey.String())
}

func TestDefaultLayoutCoversAlphabet(t *testing.T) {
	require.NoError(t, DefaultLayout.Validate())

	var got []rune
	for _, row := range DefaultLayout {
		for _, k := range row {
			got = append(got, rune(k))
		}
	}
	assert.ElementsMatch(t, []rune(Alphabet), got)
}

func TestLayoutValidateRejectsDuplicates(t *testing.T) {
	l := DefaultLayout
	l[0][0] = '2'
	assert.Error(t, l.Validate())
}

func TestLayoutValidateRejectsUnknownKey(t *testing.T) {
	l := DefaultLayout
	l[3][3] = 'E'
	assert.Error(t, l.Validate())
}

func TestPinsValidate(t *testing.T) {
	assert.NoError(t, Pins{Rows: DefaultRowPins, Cols: DefaultColPins}.Validate())
	assert.Error(t, Pins{Rows: []int{1, 2, 3}, Cols: DefaultColPins}.Validate())
	assert.Error(t, Pins{Rows: DefaultRowPins, Cols: []int{23, 22, 21, 18}}.Validate())
	assert.Error(t, Pins{Rows: []int{-1, 2, 3, 5}, Cols: DefaultColPins}.Validate())
}

func TestEdgeTrackerReportsOncePerPress(t *testing.T) {
	var e edgeTracker

	k, ok := e.next([]Key{'5'})
	require.True(t, ok)
	assert.Equal(t, Key('5'), k)

	// Held down across scans
	for i := 0; i < 5; i++ {
		_, ok = e.next([]Key{'5'})
		assert.False(t, ok, "scan %d", i)
	}

	// Released, then pressed again
	_, ok = e.next(nil)
	assert.False(t, ok)
	k, ok = e.next([]Key{'5'})
	require.True(t, ok)
	assert.Equal(t, Key('5'), k)
}

func TestEdgeTrackerRollover(t *testing.T) {
	var e edgeTracker

	e.next([]Key{'1'})

	// Second key pressed while first still held is not reported
	_, ok := e.next([]Key{'1', '2'})
	assert.False(t, ok)

	// First released, second still held: report second
	k, ok := e.next([]Key{'2'})
	require.True(t, ok)
	assert.Equal(t, Key('2'), k)
}

func TestFakeSourcePoll(t *testing.T) {
	f := NewFakeSourceString("01 #")

	k, ok, err := f.Poll()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Key('0'), k)

	k, ok, _ = f.Poll()
	assert.True(t, ok)
	assert.Equal(t, Key('1'), k)

	_, ok, _ = f.Poll()
	assert.False(t, ok, "space is an idle poll")

	k, ok, _ = f.Poll()
	assert.True(t, ok)
	assert.Equal(t, KeySubmit, k)

	_, ok, err = f.Poll()
	assert.NoError(t, err)
	assert.False(t, ok, "exhausted script reports no key")
	assert.Equal(t, 5, f.Polls)
	assert.Equal(t, 0, f.Remaining())
}

func TestFakeSourceError(t *testing.T) {
	f := NewFakeSource('1')
	f.PollError = errors.New("simulated error")

	_, ok, err := f.Poll()
	assert.False(t, ok)
	assert.EqualError(t, err, "simulated error")
}

func TestFakeSourceCloseAndReset(t *testing.T) {
	f := NewFakeSource('1', '2')
	f.Poll()
	require.NoError(t, f.Close())
	assert.True(t, f.Closed)

	f.Reset()
	assert.False(t, f.Closed)
	k, ok, _ := f.Poll()
	assert.True(t, ok)
	assert.Equal(t, Key('1'), k)
}
