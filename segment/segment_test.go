package segment

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func TestSingle(t *testing.T) {
	assert := require.New(t)

	s := Single(3, 4)
	assert.Equal(4, s.Cardinal())
	assert.Equal([]int{3, 4, 5, 6}, s.Indices())
	assert.True(s.Contains(3))
	assert.True(s.Contains(6))
	assert.False(s.Contains(7))
	assert.Nil(Single(3, 0))
}

func TestShrink(t *testing.T) {
	assert := require.New(t)

	s := Shrink(Set{{Start: 5, Length: 2}, {Start: 0, Length: 3}, {Start: 3, Length: 1}})
	assert.Equal(Set{{Start: 0, Length: 4}, {Start: 5, Length: 2}}, s)

	// adjacent and overlapping segments merge
	s = Shrink(Set{{Start: 0, Length: 3}, {Start: 2, Length: 3}, {Start: 5, Length: 1}})
	assert.Equal(Set{{Start: 0, Length: 6}}, s)

	assert.Nil(Shrink(nil))
	assert.Nil(Shrink(Set{{Start: 2, Length: 0}}))
}

func TestComplement(t *testing.T) {
	assert := require.New(t)

	c, err := Complement(10, Set{{Start: 0, Length: 3}, {Start: 6, Length: 2}})
	assert.NoError(err)
	assert.Equal(Set{{Start: 3, Length: 3}, {Start: 8, Length: 2}}, c)

	c, err = Complement(4, nil)
	assert.NoError(err)
	assert.Equal(Set{{Start: 0, Length: 4}}, c)

	c, err = Complement(4, Set{{Start: 0, Length: 4}})
	assert.NoError(err)
	assert.Empty(c)

	_, err = Complement(4, Set{{Start: 2, Length: 4}})
	assert.Error(err)
}

func TestGatherScatter(t *testing.T) {
	assert := require.New(t)

	s := Set{{Start: 1, Length: 2}, {Start: 4, Length: 1}}
	src := []float64{10, 11, 12, 13, 14}
	dst := make([]float64, 3)
	s.Gather(dst, src)
	assert.Equal([]float64{11, 12, 14}, dst)

	out := make([]float64, 5)
	s.Scatter(out, dst)
	assert.Equal([]float64{0, 11, 12, 0, 14}, out)

	assert.Panics(func() { s.Gather(make([]float64, 2), src) })
	assert.Panics(func() { s.Scatter(out, make([]float64, 2)) })
}

func TestSetProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	genMask := gen.SliceOf(gen.Bool())

	properties.Property("complement partitions the index range", prop.ForAll(
		func(mask []bool) bool {
			s := FromBools(mask)
			c, err := Complement(len(mask), s)
			if err != nil {
				return false
			}
			if !Disjoint(s, c) {
				return false
			}
			return s.Cardinal()+c.Cardinal() == len(mask)
		},
		genMask,
	))

	properties.Property("union selects an index iff one operand does", prop.ForAll(
		func(a, b []bool) bool {
			sa, sb := FromBools(a), FromBools(b)
			u := Union(sa, sb)
			n := len(a)
			if len(b) > n {
				n = len(b)
			}
			for i := 0; i < n; i++ {
				if u.Contains(i) != (sa.Contains(i) || sb.Contains(i)) {
					return false
				}
			}
			return true
		},
		genMask, genMask,
	))

	properties.Property("double complement is the identity on normalized sets", prop.ForAll(
		func(mask []bool) bool {
			s := FromBools(mask)
			c, err := Complement(len(mask), s)
			if err != nil {
				return false
			}
			cc, err := Complement(len(mask), c)
			if err != nil {
				return false
			}
			if len(cc) != len(s) {
				return false
			}
			for i := range s {
				if cc[i] != s[i] {
					return false
				}
			}
			return true
		},
		genMask,
	))

	properties.Property("shrink is idempotent and normalized", prop.ForAll(
		func(mask []bool) bool {
			s := FromBools(mask)
			if len(Shrink(s)) != len(s) {
				return false
			}
			for i := 1; i < len(s); i++ {
				// sorted, disjoint and non-adjacent
				if s[i].Start <= s[i-1].End() {
					return false
				}
			}
			return true
		},
		genMask,
	))

	properties.Property("gather then scatter restores the selected coordinates", prop.ForAll(
		func(mask []bool) bool {
			s := FromBools(mask)
			src := make([]float64, len(mask))
			for i := range src {
				src[i] = float64(i + 1)
			}
			tmp := make([]float64, s.Cardinal())
			s.Gather(tmp, src)
			out := make([]float64, len(mask))
			s.Scatter(out, tmp)
			for i, m := range mask {
				want := 0.0
				if m {
					want = src[i]
				}
				if out[i] != want {
					return false
				}
			}
			return true
		},
		genMask,
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
