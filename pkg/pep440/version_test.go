package pep440

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *Version
	}{
		{
			name:  "standard release",
			input: "1.2.3",
			want:  &Version{Release: []int{1, 2, 3}, Post: noSegment, Dev: noSegment},
		},
		{
			name:  "two segments",
			input: "2.26",
			want:  &Version{Release: []int{2, 26}, Post: noSegment, Dev: noSegment},
		},
		{
			name:  "single segment",
			input: "7",
			want:  &Version{Release: []int{7}, Post: noSegment, Dev: noSegment},
		},
		{
			name:  "v prefix",
			input: "v1.2.3",
			want:  &Version{Release: []int{1, 2, 3}, Post: noSegment, Dev: noSegment},
		},
		{
			name:  "epoch",
			input: "2!1.0",
			want:  &Version{Epoch: 2, Release: []int{1, 0}, Post: noSegment, Dev: noSegment},
		},
		{
			name:  "release candidate",
			input: "1.2.3rc1",
			want:  &Version{Release: []int{1, 2, 3}, PrePhase: "rc", PreNum: 1, Post: noSegment, Dev: noSegment},
		},
		{
			name:  "alpha normalizes to a",
			input: "1.0alpha2",
			want:  &Version{Release: []int{1, 0}, PrePhase: "a", PreNum: 2, Post: noSegment, Dev: noSegment},
		},
		{
			name:  "c normalizes to rc",
			input: "1.0c3",
			want:  &Version{Release: []int{1, 0}, PrePhase: "rc", PreNum: 3, Post: noSegment, Dev: noSegment},
		},
		{
			name:  "post release",
			input: "1.4.post2",
			want:  &Version{Release: []int{1, 4}, Post: 2, Dev: noSegment},
		},
		{
			name:  "implicit post via dash",
			input: "1.0-1",
			want:  &Version{Release: []int{1, 0}, Post: 1, Dev: noSegment},
		},
		{
			name:  "dev release",
			input: "1.2.dev4",
			want:  &Version{Release: []int{1, 2}, Post: noSegment, Dev: 4},
		},
		{
			name:  "bare dev",
			input: "1.2.dev",
			want:  &Version{Release: []int{1, 2}, Post: noSegment, Dev: 0},
		},
		{
			name:  "local label",
			input: "1.0+ubuntu.1",
			want:  &Version{Release: []int{1, 0}, Post: noSegment, Dev: noSegment, Local: "ubuntu.1"},
		},
		{
			name:  "local label with dashes",
			input: "1.0+foo-bar",
			want:  &Version{Release: []int{1, 0}, Post: noSegment, Dev: noSegment, Local: "foo.bar"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			require.False(t, got.Unknown, "parse should succeed for %q", tt.input)
			assert.Equal(t, tt.want.Epoch, got.Epoch)
			assert.Equal(t, tt.want.Release, got.Release)
			assert.Equal(t, tt.want.PrePhase, got.PrePhase)
			assert.Equal(t, tt.want.PreNum, got.PreNum)
			assert.Equal(t, tt.want.Post, got.Post)
			assert.Equal(t, tt.want.Dev, got.Dev)
			assert.Equal(t, tt.want.Local, got.Local)
		})
	}
}

func TestParse_Unknown(t *testing.T) {
	inputs := []string{"", "not-a-version", "1.2.3-gibberish-x", "abc.1.2", "1..2"}

	for _, input := range inputs {
		v := Parse(input)
		assert.True(t, v.Unknown, "expected %q to parse as unknown", input)
	}
}

func TestParse_PreservesOriginal(t *testing.T) {
	v := Parse("  1.2.3rc1 ")
	assert.Equal(t, "1.2.3rc1", v.String())
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{name: "equal", a: "1.2.3", b: "1.2.3", want: 0},
		{name: "patch difference", a: "1.2.3", b: "1.2.4", want: -1},
		{name: "minor difference", a: "1.3.0", b: "1.2.9", want: 1},
		{name: "major difference", a: "2.0.0", b: "1.99.99", want: 1},
		{name: "zero padding", a: "1.2", b: "1.2.0", want: 0},
		{name: "epoch dominates", a: "1!1.0", b: "999.0", want: 1},
		{name: "prerelease below final", a: "1.0rc1", b: "1.0", want: -1},
		{name: "alpha below beta", a: "1.0a2", b: "1.0b1", want: -1},
		{name: "beta below rc", a: "1.0b9", b: "1.0rc1", want: -1},
		{name: "rc numbers ordered", a: "1.0rc1", b: "1.0rc2", want: -1},
		{name: "dev below prerelease", a: "1.0.dev9", b: "1.0a1", want: -1},
		{name: "post above final", a: "1.0.post1", b: "1.0", want: 1},
		{name: "post releases ordered", a: "1.0.post1", b: "1.0.post2", want: -1},
		{name: "local above bare", a: "1.0+local", b: "1.0", want: 1},
		{name: "unknown below everything", a: "garbage", b: "0.0.1", want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := Parse(tt.a), Parse(tt.b)
			assert.Equal(t, tt.want, a.Compare(b))
			assert.Equal(t, -tt.want, b.Compare(a))
		})
	}
}

func TestVersion_ComparisonHelpers(t *testing.T) {
	v1 := MustParse("1.2.3")
	v2 := MustParse("1.3.0")

	assert.True(t, v1.LessThan(v2))
	assert.True(t, v2.GreaterThan(v1))
	assert.True(t, v1.Equal(MustParse("1.2.3")))
	assert.False(t, v1.Equal(v2))
}

func TestVersion_IsPrerelease(t *testing.T) {
	assert.True(t, Parse("1.0rc1").IsPrerelease())
	assert.True(t, Parse("1.0.dev1").IsPrerelease())
	assert.False(t, Parse("1.0").IsPrerelease())
	assert.False(t, Parse("1.0.post1").IsPrerelease())
}

func TestVersion_Distance(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{name: "identical", a: "1.2.3", b: "1.2.3", want: 0},
		{name: "patch step", a: "1.2.3", b: "1.2.5", want: 2},
		{name: "minor step", a: "1.2.0", b: "1.4.0", want: 2_000},
		{name: "major step", a: "1.0.0", b: "3.0.0", want: 2_000_000},
		{name: "mixed", a: "2.26.0", b: "2.32.5", want: 6_005},
		{name: "symmetric", a: "2.32.5", b: "2.26.0", want: 6_005},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MustParse(tt.a).Distance(MustParse(tt.b)))
		})
	}
}

func TestMustParse_PanicsOnUnknown(t *testing.T) {
	assert.Panics(t, func() {
		MustParse("definitely not a version")
	})
}

func TestSortDescending(t *testing.T) {
	versions := []*Version{
		Parse("1.0"),
		Parse("2.1.3"),
		Parse("2.1.3rc1"),
		Parse("0.9"),
		Parse("2.1.4"),
	}

	SortDescending(versions)

	got := make([]string, len(versions))
	for i, v := range versions {
		got[i] = v.String()
	}
	assert.Equal(t, []string{"2.1.4", "2.1.3", "2.1.3rc1", "1.0", "0.9"}, got)
}

func TestSortStrings_DropsInvalid(t *testing.T) {
	sorted := SortStrings([]string{"1.0", "bogus", "2.0"})
	require.Len(t, sorted, 2)
	assert.Equal(t, "2.0", sorted[0].String())
	assert.Equal(t, "1.0", sorted[1].String())
}
