package domain

import (
	"strings"
)

// CourseLevel describes the intended audience of a course.
type CourseLevel string

const (
	CourseLevelBeginner     CourseLevel = "beginner"
	CourseLevelIntermediate CourseLevel = "intermediate"
	CourseLevelAdvanced     CourseLevel = "advanced"
)

// Course is an offering visitors can subscribe to. ID doubles as the
// "framework" value on confirmation links.
type Course struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Level CourseLevel `json:"level"`
	Tags  []string    `json:"tags"`
}

// Catalog is an ordered, read-only list of courses.
type Catalog struct {
	courses []Course
	byID    map[string]int
}

// NewCatalog builds a catalog. Later entries with a duplicate ID are ignored.
func NewCatalog(courses []Course) *Catalog {
	c := &Catalog{byID: make(map[string]int, len(courses))}
	for _, course := range courses {
		if _, exists := c.byID[course.ID]; exists {
			continue
		}
		c.byID[course.ID] = len(c.courses)
		c.courses = append(c.courses, course)
	}
	return c
}

// DefaultCatalog is the set of courses currently on the site.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Course{
		{ID: "playwright-mastery", Name: "Playwright Mastery", Level: CourseLevelIntermediate, Tags: []string{"playwright", "typescript", "e2e"}},
		{ID: "selenium-java", Name: "Selenium WebDriver with Java", Level: CourseLevelBeginner, Tags: []string{"selenium", "java", "e2e"}},
		{ID: "cypress-fundamentals", Name: "Cypress Fundamentals", Level: CourseLevelBeginner, Tags: []string{"cypress", "javascript", "e2e"}},
		{ID: "api-testing-postman", Name: "API Testing with Postman", Level: CourseLevelBeginner, Tags: []string{"api", "postman", "rest"}},
		{ID: "restassured-api", Name: "REST Assured API Automation", Level: CourseLevelIntermediate, Tags: []string{"api", "java", "rest"}},
		{ID: "k6-performance", Name: "Performance Testing with k6", Level: CourseLevelAdvanced, Tags: []string{"performance", "k6", "load"}},
		{ID: "ci-test-pipelines", Name: "Test Automation in CI Pipelines", Level: CourseLevelAdvanced, Tags: []string{"ci", "github-actions", "docker"}},
	})
}

// Get returns the course with the given ID.
func (c *Catalog) Get(id string) (Course, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Course{}, false
	}
	return c.courses[i], true
}

// NameFor returns the display name for a course ID, falling back to the ID.
func (c *Catalog) NameFor(id string) string {
	if course, ok := c.Get(id); ok {
		return course.Name
	}
	return id
}

// All returns every course in catalog order.
func (c *Catalog) All() []Course {
	out := make([]Course, len(c.courses))
	copy(out, c.courses)
	return out
}

// Search matches the query case-insensitively against ID, name and tags.
// An empty query returns the whole catalog.
func (c *Catalog) Search(query string) []Course {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return c.All()
	}

	var out []Course
	for _, course := range c.courses {
		if course.matches(q) {
			out = append(out, course)
		}
	}
	return out
}

func (course Course) matches(q string) bool {
	if strings.Contains(strings.ToLower(course.ID), q) ||
		strings.Contains(strings.ToLower(course.Name), q) {
		return true
	}
	for _, tag := range course.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}
