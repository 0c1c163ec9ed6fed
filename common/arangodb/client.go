package arangodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/arangodb/go-driver/v2/connection"
)

var ErrNotFound = errors.New("document not found")

// Client is the read side of the learning graph. All mutation happens in the
// offline build job; every operation here is a pure query. A connection
// failure is returned as an error and is fatal for the request that issued
// the call.
type Client interface {
	Connect(ctx context.Context) error

	// Course lookups back the course_match retrieval strategy.
	AppsByCourseCode(ctx context.Context, courseID string, topK int) ([]AppRow, error)
	AppsByCourseTitle(ctx context.Context, title string, topK int) ([]AppRow, error)

	// AppsBySkills backs the skill_match and semantic_bridge strategies.
	AppsBySkills(ctx context.Context, skills []string, topK int) ([]AppRow, error)

	// ActiveSkillNames returns every skill with at least one DEVELOPS edge.
	// This is the candidate universe for semantic bridging.
	ActiveSkillNames(ctx context.Context) ([]string, error)

	Close() error
}

type Config struct {
	URL      string
	Username string
	Password string
	Database string
}

func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("arangodb URL is required")
	}
	if c.Username == "" {
		return fmt.Errorf("arangodb username is required")
	}
	if c.Database == "" {
		return fmt.Errorf("arangodb database name is required")
	}
	return nil
}

type client struct {
	conn         connection.Connection
	arangoClient arangodb.Client
	db           arangodb.Database
	cfg          Config
}

func New(cfg Config) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("arangodb config: %w", err)
	}

	endpoint := connection.NewRoundRobinEndpoints([]string{cfg.URL})
	conn := connection.NewHttp2Connection(connection.DefaultHTTP2ConfigurationWrapper(endpoint, true))

	auth := connection.NewBasicAuth(cfg.Username, cfg.Password)
	if err := conn.SetAuthentication(auth); err != nil {
		return nil, fmt.Errorf("arangodb auth: %w", err)
	}

	return &client{
		conn:         conn,
		arangoClient: arangodb.NewClient(conn),
		cfg:          cfg,
	}, nil
}

func (c *client) Close() error {
	return nil
}

// Connect resolves the database handle. The database is expected to exist
// already (populated by the build job) so, unlike a read/write client, a
// missing database is an error.
func (c *client) Connect(ctx context.Context) error {
	start := time.Now()

	exists, err := c.arangoClient.DatabaseExists(ctx, c.cfg.Database)
	if err != nil {
		return fmt.Errorf("check database exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("database %q not found; run the graph build job first", c.cfg.Database)
	}

	db, err := c.arangoClient.GetDatabase(ctx, c.cfg.Database, nil)
	if err != nil {
		return fmt.Errorf("get database: %w", err)
	}
	c.db = db

	slog.InfoContext(ctx, "arangodb connected",
		"database", c.cfg.Database,
		"duration_ms", time.Since(start).Milliseconds())

	return nil
}

const appsByCourseCodeQuery = `
	FOR c IN courses
		FILTER c.course_id == @course_id
		FOR a, r IN 1..1 OUTBOUND c recommends
			SORT r.score DESC
			LIMIT @top_k
			RETURN {
				app_id: a.app_id,
				name: a.name,
				category: a.category,
				description: a.description,
				matched_skills: r.shared_skills,
				score: r.score
			}
`

func (c *client) AppsByCourseCode(ctx context.Context, courseID string, topK int) ([]AppRow, error) {
	return c.queryAppRows(ctx, appsByCourseCodeQuery, map[string]any{
		"course_id": courseID,
		"top_k":     topK,
	})
}

const appsByCourseTitleQuery = `
	FOR c IN courses
		FILTER CONTAINS(LOWER(c.title), LOWER(@title))
		FOR a, r IN 1..1 OUTBOUND c recommends
			SORT r.score DESC
			LIMIT @top_k
			RETURN {
				app_id: a.app_id,
				name: a.name,
				category: a.category,
				description: a.description,
				matched_skills: r.shared_skills,
				score: r.score
			}
`

func (c *client) AppsByCourseTitle(ctx context.Context, title string, topK int) ([]AppRow, error) {
	return c.queryAppRows(ctx, appsByCourseTitleQuery, map[string]any{
		"title": title,
		"top_k": topK,
	})
}

const appsBySkillsQuery = `
	FOR a IN apps
		LET matched = (
			FOR s, d IN 1..1 OUTBOUND a develops
				FILTER s.name IN @skills
				RETURN { name: s.name, weight: d.weight }
		)
		FILTER LENGTH(matched) > 0
		LET score = SUM(matched[*].weight)
		SORT score DESC, LENGTH(matched) DESC
		LIMIT @top_k
		RETURN {
			app_id: a.app_id,
			name: a.name,
			category: a.category,
			description: a.description,
			matched_skills: matched[*].name,
			score: score
		}
`

func (c *client) AppsBySkills(ctx context.Context, skills []string, topK int) ([]AppRow, error) {
	if len(skills) == 0 {
		return nil, nil
	}
	return c.queryAppRows(ctx, appsBySkillsQuery, map[string]any{
		"skills": skills,
		"top_k":  topK,
	})
}

const activeSkillNamesQuery = `
	FOR s IN skills
		FILTER LENGTH(FOR a IN 1..1 INBOUND s develops LIMIT 1 RETURN 1) > 0
		RETURN s.name
`

func (c *client) ActiveSkillNames(ctx context.Context) ([]string, error) {
	if c.db == nil {
		return nil, fmt.Errorf("database not initialized, call Connect first")
	}

	cursor, err := c.db.Query(ctx, activeSkillNamesQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer cursor.Close()

	var names []string
	for cursor.HasMore() {
		var name string
		if _, err := cursor.ReadDocument(ctx, &name); err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}
		if name != "" {
			names = append(names, name)
		}
	}

	return names, nil
}

// appDocument is the wire shape of one query row before mapping to AppRow.
type appDocument struct {
	AppID         string   `json:"app_id"`
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	Description   string   `json:"description"`
	MatchedSkills []string `json:"matched_skills"`
	Score         float64  `json:"score"`
}

func (c *client) queryAppRows(ctx context.Context, query string, bindVars map[string]any) ([]AppRow, error) {
	if c.db == nil {
		return nil, fmt.Errorf("database not initialized, call Connect first")
	}

	start := time.Now()

	cursor, err := c.db.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer cursor.Close()

	var rows []AppRow
	for cursor.HasMore() {
		var doc appDocument
		if _, err := cursor.ReadDocument(ctx, &doc); err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}
		// Apps without a name cannot participate in candidate merging.
		if doc.Name == "" {
			continue
		}
		rows = append(rows, toAppRow(doc))
	}

	slog.DebugContext(ctx, "arangodb query completed",
		"rows", len(rows),
		"duration_ms", time.Since(start).Milliseconds())

	return rows, nil
}

func toAppRow(doc appDocument) AppRow {
	return AppRow{
		AppID:         doc.AppID,
		Name:          doc.Name,
		Category:      doc.Category,
		Description:   doc.Description,
		MatchedSkills: doc.MatchedSkills,
		Score:         doc.Score,
	}
}
