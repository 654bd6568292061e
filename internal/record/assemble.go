package record

import (
	"fmt"

	"github.com/pallavi-MMM/movie-indexing/internal/segment"
	"github.com/pallavi-MMM/movie-indexing/pkg/util"
)

// SegmentationStage names the producer of assembled scene skeletons.
const SegmentationStage = "segmentation"

// Assemble builds the skeleton partial record for one scene interval:
// identity and timing fields that downstream stages attach their data
// to. Pure function of its inputs; ordinal is 1-based.
func Assemble(iv segment.Interval, fps float64, movieID, titleName string, ordinal int) Partial {
	sceneID := SceneID(movieID, ordinal)
	duration := util.RoundSeconds(iv.Seconds(fps))

	return Partial{
		SceneID: sceneID,
		Stage:   SegmentationStage,
		Fields: map[string]Value{
			"movie_id":   String(movieID),
			"title_name": String(titleName),
			"start_time": String(util.FormatTimecode(iv.StartTime(fps))),
			"end_time":   String(util.FormatTimecode(iv.EndTime(fps))),
			"duration":   Number(duration),
		},
	}
}

// SceneID derives the stable scene identifier from the movie and the
// 1-based scene ordinal.
func SceneID(movieID string, ordinal int) string {
	return fmt.Sprintf("%s_scene_%04d", movieID, ordinal)
}
