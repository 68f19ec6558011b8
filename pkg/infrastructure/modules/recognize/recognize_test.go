package recognize

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediamate/mediamate/pkg/domain/media"
	"github.com/mediamate/mediamate/pkg/service/chain"
)

func TestParseMovie(t *testing.T) {
	m := Parse("The.Example.Film.2021.1080p.BluRay.x264-GROUP")
	require.NotNil(t, m)
	assert.Equal(t, media.MediaTypeMovie, m.Type)
	assert.Equal(t, "The Example Film", m.Title)
	assert.Equal(t, "2021", m.Year)
}

func TestParseTVEpisode(t *testing.T) {
	m := Parse("Some.Show.S02E05.2160p.WEB-DL.HEVC")
	require.NotNil(t, m)
	assert.Equal(t, media.MediaTypeTV, m.Type)
	assert.Equal(t, "Some Show", m.Title)
	assert.Equal(t, 2, m.Season)
}

func TestParseSeasonSpan(t *testing.T) {
	m := Parse("Long.Show.S01-S03.1080p.Complete")
	require.NotNil(t, m)
	assert.Equal(t, media.MediaTypeTV, m.Type)
	assert.Equal(t, 1, m.Season)
}

func TestParseEpisodeOnlyDefaultsSeasonOne(t *testing.T) {
	m := Parse("Anime.Title.EP07.720p")
	require.NotNil(t, m)
	assert.Equal(t, media.MediaTypeTV, m.Type)
	assert.Equal(t, 1, m.Season)
}

func TestParseBracketedNoise(t *testing.T) {
	m := Parse("Another Show S01E01 [1080p][HEVC]")
	require.NotNil(t, m)
	assert.Equal(t, "Another Show", m.Title)
	assert.Equal(t, media.MediaTypeTV, m.Type)
}

func TestParseNoiseOnly(t *testing.T) {
	assert.Nil(t, Parse("1080p.BluRay.x264"))
	assert.Nil(t, Parse(""))
}

func TestModuleCachesResults(t *testing.T) {
	m := New(zerolog.Nop())
	require.NoError(t, m.Init(context.Background()))

	handler := m.Capabilities()[chain.CapRecognizeMedia]
	require.NotNil(t, handler)

	args := chain.Args{"meta": media.MetaInfo{RawTitle: "A.Film.2020.1080p"}}
	first, err := handler(context.Background(), args)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := handler(context.Background(), args)
	require.NoError(t, err)
	require.NotNil(t, second)

	// cached results are defensive copies
	assert.NotSame(t, first.(*media.Media), second.(*media.Media))
	assert.Equal(t, first.(*media.Media).Title, second.(*media.Media).Title)
}

func TestModuleUnrecognizableIsNil(t *testing.T) {
	m := New(zerolog.Nop())
	require.NoError(t, m.Init(context.Background()))

	handler := m.Capabilities()[chain.CapRecognizeMedia]
	result, err := handler(context.Background(), chain.Args{"meta": media.MetaInfo{RawTitle: "x265.720p"}})
	require.NoError(t, err)
	assert.Nil(t, result)
}
