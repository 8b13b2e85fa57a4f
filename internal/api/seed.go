package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/maya/opportunity-hub/internal/canvas"
	"github.com/maya/opportunity-hub/internal/models"
)

// handleSeed loads a small set of published opportunities for local
// development and demos. Seeds are owned by a dedicated seed user.
func (s *Server) handleSeed(c echo.Context) error {
	ctx := c.Request().Context()

	var seedUser uuid.UUID
	err := s.DB.QueryRow(ctx, `
		INSERT INTO users (email, password_hash)
		VALUES ('seed@opportunity-hub.local', '')
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id
	`).Scan(&seedUser)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create seed user"})
	}

	seeds := []models.Opportunity{
		{
			Title:       "Community Composting Hub",
			Description: "A neighborhood hub that turns household food scraps into compost for local gardens and urban farms.",
			Sections: map[string]models.Section{
				models.SectionRoles: {
					Heading: "Key Roles & Responsibilities",
					Items: []string{
						"Site coordinator to manage drop-off hours and volunteer shifts",
						"Compost educator to run monthly workshops",
					},
				},
				models.SectionConnections: {
					Heading: "Who I'm Looking to Collaborate With",
					Items: []string{
						"Community gardens that can use finished compost",
						"Local restaurants with food scrap streams",
						"Municipal waste programs open to pilot partnerships",
					},
				},
				models.SectionNextSteps: {
					Heading: "Next Steps",
					Items: []string{
						"Secure a hosting site with water access",
						"Run a four-week pilot with 25 households",
					},
				},
			},
			Tags: []string{"composting", "community", "circular economy"},
		},
		{
			Title:       "Repair Cafe Network",
			Description: "Monthly pop-up events where volunteer fixers help neighbors repair electronics, bikes, and clothing instead of discarding them.",
			Sections: map[string]models.Section{
				models.SectionConnections: {
					Heading: "Who I'm Looking to Collaborate With",
					Items: []string{
						"Skilled repair volunteers (electronics, sewing, bikes)",
						"Libraries and community centers with event space",
					},
				},
				models.SectionNextSteps: {
					Heading: "Next Steps",
					Items: []string{
						"Recruit a core team of five fixers",
						"Schedule the first event and borrow tool kits",
					},
				},
			},
			Tags: []string{"repair", "zero waste", "skills sharing"},
		},
		{
			Title:       "Neighborhood Seed Library",
			Description: "A free seed lending library where gardeners borrow locally adapted seeds in spring and return saved seeds after harvest.",
			Sections: map[string]models.Section{
				models.SectionRoles: {
					Heading: "Key Roles & Responsibilities",
					Items:   []string{"Seed librarian to catalog and test germination rates"},
				},
				models.SectionConnections: {
					Heading: "Who I'm Looking to Collaborate With",
					Items: []string{
						"Experienced seed savers willing to teach",
						"A library or school to host the seed cabinet",
					},
				},
			},
			Tags: []string{"gardening", "seeds", "food sovereignty"},
		},
	}

	count := 0
	for i := range seeds {
		o := &seeds[i]
		o.Status = models.StatusPublished
		o.CreatedBy = seedUser
		o.Content = canvas.RenderContent(o.Description, o.Sections)

		if _, err := s.Store.CreateOpportunity(ctx, o); err != nil {
			c.Logger().Errorf("Failed to seed %q: %v", o.Title, err)
			continue
		}
		count++
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Seed complete",
		"count":   count,
	})
}
