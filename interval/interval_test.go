package interval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func assertCanonical(t *testing.T, s *Set) {
	t.Helper()
	rs := s.Ranges()
	for i, r := range rs {
		assert.LessOrEqualf(t, r.Lo, r.Hi, "range %d has lo > hi", i)
		if i > 0 {
			prev := rs[i-1]
			assert.Greaterf(t, r.Lo, prev.Hi+1, "ranges %d and %d are adjacent or overlapping", i-1, i)
		}
	}
}

func TestUnionMergesAdjacentAndOverlapping(t *testing.T) {
	s := Closed(1, 10).Union(Closed(11, 20))
	assertCanonical(t, s)
	assert.Equal(t, [][2]int64{{1, 20}}, s.ToPairs())

	s2 := Closed(1, 10).Union(Closed(5, 20))
	assertCanonical(t, s2)
	assert.Equal(t, [][2]int64{{1, 20}}, s2.ToPairs())

	s3 := Closed(1, 5).Union(Closed(10, 20))
	assertCanonical(t, s3)
	assert.Equal(t, [][2]int64{{1, 5}, {10, 20}}, s3.ToPairs())
}

func TestIntersectAndDifference(t *testing.T) {
	a := Closed(1, 100)
	b := FromPairs([][2]int64{{1, 99}, {200, 299}})
	assert.Equal(t, [][2]int64{{1, 99}}, a.Intersect(b).ToPairs())

	d := a.Difference(Closed(40, 60))
	assertCanonical(t, d)
	assert.Equal(t, [][2]int64{{1, 39}, {61, 100}}, d.ToPairs())
}

func TestContains(t *testing.T) {
	s := FromPairs([][2]int64{{1000, 1099}, {1200, 1299}})
	assert.True(t, s.Contains(1050))
	assert.False(t, s.Contains(1150))
	assert.True(t, s.Contains(1200))
	assert.True(t, s.Contains(1299))
	assert.False(t, s.Contains(1300))
}

func TestEmptySerializesToEmptySlice(t *testing.T) {
	s := Empty()
	assert.Equal(t, [][2]int64{}, s.ToPairs())
}

func TestS2GapFillDescendingScenario(t *testing.T) {
	done := FromPairs([][2]int64{{1000, 1099}, {1200, 1299}})
	wanted := Closed(1000, 1500)
	missing := wanted.Difference(done).Intersect(Closed(1000, 1499))
	assertCanonical(t, missing)
	assert.Equal(t, [][2]int64{{1100, 1199}, {1300, 1499}}, missing.ToPairs())
}

func TestMonotonicUnionNeverShrinks(t *testing.T) {
	s := Empty()
	inputs := []Range{{1, 5}, {3, 10}, {20, 25}, {10, 21}}
	for _, r := range inputs {
		next := s.Union(Closed(r.Lo, r.Hi))
		// Every previously-covered height is still covered.
		for _, old := range s.Ranges() {
			for h := old.Lo; h <= old.Hi; h++ {
				assert.True(t, next.Contains(h))
			}
		}
		assertCanonical(t, next)
		s = next
	}
}
