package identifier

// Default patterns. Paths are matched relative to their library root and always start
// with a "/". Named groups: Collection, Show, StartYear, Season, Episode, Absolute.
var (
	DefaultPatterns = []string{
		// /Show (2000)/Season 1/Show - e01.mkv
		`(?i)^/?(?:(?P<Collection>[^/]+)/)?(?P<Show>[^/]+?)(?: \((?P<StartYear>\d{4})\))?/(?:season ?|s)(?P<Season>\d+)/[^/]*?e(?P<Episode>\d+)[^/]*\.\w+$`,
		// /Show (2000)/Show S01E01.mkv
		`(?i)^/?(?:(?P<Collection>[^/]+)/)?(?P<Show>[^/]+?)(?: \((?P<StartYear>\d{4})\))?/(?:season ?\d+/|s\d+/)?[^/]*?s(?P<Season>\d+) ?e(?P<Episode>\d+)[^/]*\.\w+$`,
	}

	DefaultAbsolutePatterns = []string{
		// /Show (2000)/Show 100.mkv
		`(?i)^/?(?:(?P<Collection>[^/]+)/)?(?P<Show>[^/]+?)(?: \((?P<StartYear>\d{4})\))?/[^/]*?[ _-](?P<Absolute>\d+)(?:v\d+)?(?: [^/]*)?\.\w+$`,
	}

	DefaultMoviePatterns = []string{
		// /Show (2000)/Show.mkv
		`(?i)^/?(?:(?P<Collection>[^/]+)/)?(?P<Show>[^/]+?)(?: \((?P<StartYear>\d{4})\))?/[^/]+\.\w+$`,
	}

	DefaultSubtitlePatterns = []string{
		`(?i)^(?P<Episode>.+)\.(?P<Language>\w{1,3})\.(?P<Default>default\.)?(?P<Forced>forced\.)?.*$`,
	}
)

// subtitleCodecs maps subtitle file extensions to codec names.
var subtitleCodecs = map[string]string{
	"srt": "subrip",
	"str": "subrip",
	"ass": "ass",
	"ssa": "ass",
	"vtt": "webvtt",
}
