package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/folio/internal/middleware"
	"github.com/hitoshi/folio/internal/model"
)

// SkillListerInterface はスキル一覧の取得インターフェース。
type SkillListerInterface interface {
	ListActive(ctx context.Context) ([]*model.Skill, error)
}

// ProjectFinderInterface はプロジェクトの取得インターフェース。
type ProjectFinderInterface interface {
	ListActive(ctx context.Context) ([]*model.Project, error)
	FindActiveByID(ctx context.Context, id string) (*model.Project, error)
}

// ExperienceListerInterface は職務経歴の取得インターフェース。
type ExperienceListerInterface interface {
	ListActive(ctx context.Context) ([]*model.WorkExperience, error)
}

// ResumeFinderInterface はCVファイルの取得インターフェース。
type ResumeFinderInterface interface {
	FindActive(ctx context.Context) (*model.ResumeFile, error)
}

// ContentHandler はポートフォリオ公開データのHTTPハンドラー。
type ContentHandler struct {
	skills      SkillListerInterface
	projects    ProjectFinderInterface
	experiences ExperienceListerInterface
	resumes     ResumeFinderInterface
}

// NewContentHandler はContentHandlerを生成する。
func NewContentHandler(
	skills SkillListerInterface,
	projects ProjectFinderInterface,
	experiences ExperienceListerInterface,
	resumes ResumeFinderInterface,
) *ContentHandler {
	return &ContentHandler{
		skills:      skills,
		projects:    projects,
		experiences: experiences,
		resumes:     resumes,
	}
}

// skillResponse はスキルのレスポンス表現。
type skillResponse struct {
	Name     string `json:"name"`
	Icon     string `json:"icon,omitempty"`
	Percent  int    `json:"percent"`
	Category string `json:"category"`
}

// ListSkills は公開中のスキル一覧を返す。
// GET /api/skills
func (h *ContentHandler) ListSkills(w http.ResponseWriter, r *http.Request) {
	skills, err := h.skills.ListActive(r.Context())
	if err != nil {
		slog.Error("failed to list skills", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	items := make([]skillResponse, 0, len(skills))
	for _, s := range skills {
		items = append(items, skillResponse{
			Name:     s.Name,
			Icon:     s.Icon,
			Percent:  s.Percent,
			Category: string(s.Category),
		})
	}

	writeJSON(w, map[string]any{"skills": items})
}

// projectResponse はプロジェクトのレスポンス表現。
type projectResponse struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Slug             string   `json:"slug"`
	ShortDescription string   `json:"short_description"`
	Description      string   `json:"description,omitempty"`
	Stack            []string `json:"stack"`
	Status           string   `json:"status"`
	StatusDisplay    string   `json:"status_display"`
	GitHubURL        string   `json:"github_url,omitempty"`
	DemoURL          string   `json:"demo_url,omitempty"`
	IsFeatured       bool     `json:"is_featured"`
}

func toProjectResponse(p *model.Project, includeDescription bool) projectResponse {
	resp := projectResponse{
		ID:               p.ID,
		Title:            p.Title,
		Slug:             p.Slug,
		ShortDescription: p.ShortDescription,
		Stack:            p.Stack,
		Status:           string(p.Status),
		StatusDisplay:    p.Status.Display(),
		GitHubURL:        p.GitHubURL,
		DemoURL:          p.DemoURL,
		IsFeatured:       p.IsFeatured,
	}
	if includeDescription {
		resp.Description = p.Description
	}
	return resp
}

// ListProjects は公開中のプロジェクト一覧を返す。
// 一覧では本文を省いた短い説明のみを返す。
// GET /api/projects
func (h *ContentHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.ListActive(r.Context())
	if err != nil {
		slog.Error("failed to list projects", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	items := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		items = append(items, toProjectResponse(p, false))
	}

	writeJSON(w, map[string]any{"projects": items})
}

// GetProject はプロジェクト詳細を返す。
// GET /api/projects/{id}
func (h *ContentHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	project, err := h.projects.FindActiveByID(r.Context(), id)
	if err != nil {
		slog.Error("failed to find project", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}
	if project == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewProjectNotFoundError(id))
		return
	}

	writeJSON(w, map[string]any{"project": toProjectResponse(project, true)})
}

// experienceResponse は職務経歴のレスポンス表現。
type experienceResponse struct {
	Company     string  `json:"company"`
	Position    string  `json:"position"`
	Description string  `json:"description"`
	StartDate   string  `json:"start_date"`
	EndDate     *string `json:"end_date"` // nullは現職
}

// ListExperience は公開中の職務経歴を返す。
// GET /api/experience
func (h *ContentHandler) ListExperience(w http.ResponseWriter, r *http.Request) {
	experiences, err := h.experiences.ListActive(r.Context())
	if err != nil {
		slog.Error("failed to list experience", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	items := make([]experienceResponse, 0, len(experiences))
	for _, e := range experiences {
		resp := experienceResponse{
			Company:     e.Company,
			Position:    e.Position,
			Description: e.Description,
			StartDate:   e.StartDate.Format("2006-01-02"),
		}
		if e.EndDate != nil {
			end := e.EndDate.Format("2006-01-02")
			resp.EndDate = &end
		}
		items = append(items, resp)
	}

	writeJSON(w, map[string]any{"experience": items})
}

// GetResume は公開中のCVのメタデータを返す。
// GET /api/cv
func (h *ContentHandler) GetResume(w http.ResponseWriter, r *http.Request) {
	cv, err := h.resumes.FindActive(r.Context())
	if err != nil {
		slog.Error("failed to find resume", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}
	if cv == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewResumeNotFoundError())
		return
	}

	writeJSON(w, map[string]any{
		"file_name":    cv.FileName,
		"updated_at":   cv.UpdatedAt.Format(time.RFC3339),
		"download_url": "/api/cv/file",
	})
}

// DownloadResume は公開中のCVファイル本体を返す。
// GET /api/cv/file
func (h *ContentHandler) DownloadResume(w http.ResponseWriter, r *http.Request) {
	cv, err := h.resumes.FindActive(r.Context())
	if err != nil {
		slog.Error("failed to find resume", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}
	if cv == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewResumeNotFoundError())
		return
	}

	mime := cv.Mime
	if mime == "" {
		mime = "application/octet-stream"
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", cv.FileName))
	w.Write(cv.Data)
}

// writeJSON は200 OKのJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}
