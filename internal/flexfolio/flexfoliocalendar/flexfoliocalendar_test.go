// Copyright 2026 The flexfolio Authors
//
// All rights reserved.

package flexfoliocalendar

import (
	"testing"

	"github.com/flexfolio/flexfolio/internal/standard/xtime"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestDays(t *testing.T) {
	t.Parallel()
	// The calendar spans every calendar day, weekends included, and crosses
	// month boundaries.
	aligner := NewAligner(
		xtime.Date{Year: 2019, Month: 3, Day: 30},
		xtime.Date{Year: 2019, Month: 4, Day: 2},
		FillCarryForward,
	)
	require.Equal(t, []xtime.Date{
		{Year: 2019, Month: 3, Day: 30},
		{Year: 2019, Month: 3, Day: 31},
		{Year: 2019, Month: 4, Day: 1},
		{Year: 2019, Month: 4, Day: 2},
	}, aligner.Days())
}

func TestDaysSingleDay(t *testing.T) {
	t.Parallel()
	day := xtime.Date{Year: 2019, Month: 4, Day: 1}
	aligner := NewAligner(day, day, FillCarryForward)
	require.Equal(t, []xtime.Date{day}, aligner.Days())
}

func TestAlignNAV(t *testing.T) {
	t.Parallel()
	aligner := NewAligner(
		xtime.Date{Year: 2019, Month: 4, Day: 1},
		xtime.Date{Year: 2019, Month: 4, Day: 3},
		FillCarryForward,
	)
	aligned, err := aligner.AlignNAV(map[xtime.Date]decimal.Decimal{
		{Year: 2019, Month: 4, Day: 1}: decimal.NewFromInt(100000),
		{Year: 2019, Month: 4, Day: 2}: decimal.NewFromInt(101000),
		{Year: 2019, Month: 4, Day: 3}: decimal.NewFromInt(100500),
	})
	require.NoError(t, err)
	require.Len(t, aligned, 3)
	require.True(t, aligned[1].Equal(decimal.NewFromInt(101000)))
}

func TestAlignNAVCarryForward(t *testing.T) {
	t.Parallel()
	aligner := NewAligner(
		xtime.Date{Year: 2019, Month: 4, Day: 1},
		xtime.Date{Year: 2019, Month: 4, Day: 4},
		FillCarryForward,
	)
	// Days 2 and 3 are unreported and repeat day 1's value.
	aligned, err := aligner.AlignNAV(map[xtime.Date]decimal.Decimal{
		{Year: 2019, Month: 4, Day: 1}: decimal.NewFromInt(100000),
		{Year: 2019, Month: 4, Day: 4}: decimal.NewFromInt(100500),
	})
	require.NoError(t, err)
	require.Len(t, aligned, 4)
	require.True(t, aligned[1].Equal(decimal.NewFromInt(100000)))
	require.True(t, aligned[2].Equal(decimal.NewFromInt(100000)))
	require.True(t, aligned[3].Equal(decimal.NewFromInt(100500)))
}

func TestAlignNAVMissingBaseline(t *testing.T) {
	t.Parallel()
	aligner := NewAligner(
		xtime.Date{Year: 2019, Month: 4, Day: 1},
		xtime.Date{Year: 2019, Month: 4, Day: 2},
		FillCarryForward,
	)
	// No value on the first day is fatal regardless of policy.
	_, err := aligner.AlignNAV(map[xtime.Date]decimal.Decimal{
		{Year: 2019, Month: 4, Day: 2}: decimal.NewFromInt(100500),
	})
	require.ErrorIs(t, err, ErrMissingBaseline)
}

func TestAlignNAVStrict(t *testing.T) {
	t.Parallel()
	aligner := NewAligner(
		xtime.Date{Year: 2019, Month: 4, Day: 1},
		xtime.Date{Year: 2019, Month: 4, Day: 3},
		FillStrict,
	)
	_, err := aligner.AlignNAV(map[xtime.Date]decimal.Decimal{
		{Year: 2019, Month: 4, Day: 1}: decimal.NewFromInt(100000),
		{Year: 2019, Month: 4, Day: 3}: decimal.NewFromInt(100500),
	})
	require.ErrorIs(t, err, ErrMissingBaseline)
}

func TestParseFillPolicy(t *testing.T) {
	t.Parallel()
	policy, err := ParseFillPolicy("carry-forward")
	require.NoError(t, err)
	require.Equal(t, FillCarryForward, policy)
	policy, err = ParseFillPolicy("strict")
	require.NoError(t, err)
	require.Equal(t, FillStrict, policy)
	_, err = ParseFillPolicy("interpolate")
	require.Error(t, err)
}
