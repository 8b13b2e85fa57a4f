package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/maya/opportunity-hub/internal/canvas"
	"github.com/maya/opportunity-hub/internal/db"
)

// Prints recent opportunities and responses, for a quick look at what
// the platform is doing without opening a SQL shell.
func main() {
	ctx := context.Background()
	pool, err := db.Connect(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	rows, err := pool.Query(ctx, `
		SELECT o.title, o.status, array_length(o.tags, 1), o.engagement_count, o.like_count, o.created_at
		FROM opportunities o
		ORDER BY o.created_at DESC
		LIMIT 15
	`)
	if err != nil {
		log.Fatal(err)
	}
	defer rows.Close()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Recent Opportunities")
	t.AppendHeader(table.Row{"Title", "Status", "Tags", "Responses", "Likes", "Created"})

	for rows.Next() {
		var title, status string
		var tagCount *int
		var engagement, likes int
		var createdAt time.Time

		if err := rows.Scan(&title, &status, &tagCount, &engagement, &likes, &createdAt); err != nil {
			log.Printf("Scan error: %v", err)
			continue
		}

		tags := 0
		if tagCount != nil {
			tags = *tagCount
		}

		t.AppendRow(table.Row{canvas.TruncateText(title, 40), status, tags, engagement, likes, createdAt.Format("Jan 02 15:04")})
	}
	t.Render()

	respRows, err := pool.Query(ctx, `
		SELECT r.responder_email, o.title, r.message, r.created_at
		FROM responses r
		JOIN opportunities o ON o.id = r.opportunity_id
		ORDER BY r.created_at DESC
		LIMIT 10
	`)
	if err != nil {
		log.Fatal(err)
	}
	defer respRows.Close()

	rt := table.NewWriter()
	rt.SetOutputMirror(os.Stdout)
	rt.SetTitle("Recent Responses")
	rt.AppendHeader(table.Row{"From", "Opportunity", "Message", "At"})

	for respRows.Next() {
		var email, title, message string
		var createdAt time.Time

		if err := respRows.Scan(&email, &title, &message, &createdAt); err != nil {
			log.Printf("Scan error: %v", err)
			continue
		}

		rt.AppendRow(table.Row{email, canvas.TruncateText(title, 30), canvas.TruncateText(message, 50), createdAt.Format("Jan 02 15:04")})
	}
	rt.Render()
}
