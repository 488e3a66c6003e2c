package passage

import (
	"strconv"
	"strings"
	"time"

	"github.com/seluna-ai/passage/internal/db"
	"github.com/seluna-ai/passage/internal/domain"
	"github.com/seluna-ai/passage/internal/domain/candidate"
)

// Hash field names. Double-underscore fields follow the store convention for
// engine-owned fields; the rest is passage metadata.
const (
	fieldContent       = "__content"
	fieldVector        = "__vector"
	fieldVectorScore   = "__vector_score"
	fieldID            = "id"
	fieldDocumentID    = "document_id"
	fieldDocumentTitle = "document_title"
	fieldDomain        = "domain"
	fieldSourceType    = "source_type"
	fieldTopics        = "topics"
	fieldChunkIndex    = "chunk_index"
	fieldLastUsedAt    = "last_used_at"
	fieldUseCount      = "use_count"
	fieldDeleted       = "deleted"
)

// vectorAttr is the queryable alias the vector field is indexed under. KNN
// queries reference it as @vector, and the engine derives the distance yield
// field __vector_score from it.
const vectorAttr = "vector"

// returnFields are requested on every search; the vector blob stays out of
// result payloads.
var returnFields = []string{
	fieldContent,
	fieldID,
	fieldDocumentID,
	fieldDocumentTitle,
	fieldDomain,
	fieldSourceType,
	fieldTopics,
	fieldChunkIndex,
	fieldLastUsedAt,
	fieldUseCount,
	fieldDeleted,
	fieldVectorScore,
}

func passageKey(id string) string {
	return domain.KeyPrefix + "chunk:" + id
}

func indexName() string {
	return domain.KeyPrefix + "chunk:idx"
}

func indexDefinition(vectorDim int) (*db.IndexDefinition, error) {
	return db.NewIndex(indexName()).
		Prefix(domain.KeyPrefix+"chunk:").
		Text(fieldContent).
		Tag(fieldID).
		Tag(fieldDocumentID).
		Text(fieldDocumentTitle).
		Tag(fieldDomain).
		Tag(fieldSourceType).
		TagWithOpts(fieldTopics, ",", false).
		Numeric(fieldChunkIndex).
		Numeric(fieldLastUsedAt).
		Numeric(fieldUseCount).
		Tag(fieldDeleted).
		VectorHNSW(fieldVector, vectorAttr, vectorDim, db.DistanceCosine, 16, 200).
		Build()
}

// parseEntries converts search entries into candidates.
func parseEntries(sr *db.SearchResult, src candidate.Source) ([]candidate.Candidate, error) {
	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	out := make([]candidate.Candidate, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		id := entry.Fields[fieldID]
		if id == "" {
			id = strings.TrimPrefix(entry.Key, domain.KeyPrefix+"chunk:")
		}
		out = append(out, parseEntry(id, entry, src))
	}
	return out, nil
}

func parseEntry(id string, entry db.SearchEntry, src candidate.Source) candidate.Candidate {
	var content, documentID, documentTitle string
	meta := candidate.Metadata{}

	for k, v := range entry.Fields {
		switch k {
		case fieldContent:
			content = v
		case fieldID:
			// already resolved
		case fieldDocumentID:
			documentID = v
		case fieldDocumentTitle:
			documentTitle = v
		case fieldDomain:
			meta.Domain = v
		case fieldSourceType:
			meta.SourceType = v
		case fieldTopics:
			if v != "" {
				meta.Topics = strings.Split(v, ",")
			}
		case fieldChunkIndex:
			if n, err := strconv.Atoi(v); err == nil {
				meta.ChunkIndex = n
			}
		case fieldLastUsedAt:
			if ts, err := strconv.ParseInt(v, 10, 64); err == nil && ts > 0 {
				meta.LastUsedAt = time.Unix(ts, 0).UTC()
			}
		case fieldUseCount:
			if n, err := strconv.Atoi(v); err == nil {
				meta.UseCount = n
			}
		case fieldDeleted:
			meta.Deleted = v == "1"
		case fieldVector, fieldVectorScore:
			// handled by the db layer
		default:
			if meta.Extra == nil {
				meta.Extra = make(map[string]string)
			}
			if len(meta.Extra) < candidate.MaxExtraFields {
				meta.Extra[k] = v
			}
		}
	}

	return candidate.New(id, documentID, documentTitle, content, meta, entry.Score, src)
}

// tagEscape escapes a value for use inside an FT tag clause.
func tagEscape(s string) string {
	return tagEscaper.Replace(s)
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)

// textEscape escapes a word for use inside an FT text clause.
func textEscape(s string) string {
	return textEscaper.Replace(s)
}

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
)
