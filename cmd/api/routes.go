package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"classadmin/internal/assignment"
	"classadmin/internal/attendance"
	"classadmin/internal/auth"
	"classadmin/internal/config"
	"classadmin/internal/feed"
	"classadmin/internal/filestore"
	"classadmin/internal/identity"
	"classadmin/internal/queue"
	"classadmin/internal/report"
	"classadmin/internal/roster"
	"classadmin/internal/submission"
)

type application struct {
	cfg         config.App
	identity    *identity.Service
	roster      *roster.Service
	attendance  *attendance.Service
	assignments *assignment.Service
	submissions *submission.Service
	queue       queue.Queue
	feed        *feed.Feed
	files       *filestore.Client
}

// writeErr maps domain errors onto HTTP statuses. Errors outside the known
// set are storage or network failures; their detail goes to the log, not
// the client.
func writeErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, roster.ErrDuplicateEmail), errors.Is(err, identity.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, roster.ErrNotFound),
		errors.Is(err, assignment.ErrNotFound),
		errors.Is(err, submission.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, identity.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, roster.ErrInvalid),
		errors.Is(err, attendance.ErrInvalid),
		errors.Is(err, assignment.ErrInvalid),
		errors.Is(err, submission.ErrInvalid),
		errors.Is(err, identity.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (app *application) registerAuthRoutes(r *gin.Engine) {
	r.POST("/v1/auth/signup", func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required,min=6"`
			Role     string `json:"role" binding:"required"`
			Name     string `json:"name"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user, err := app.identity.SignUp(c.Request.Context(), req.Email, req.Password, req.Role, req.Name)
		if err != nil {
			writeErr(c, err)
			return
		}
		tokens, err := auth.Issue(user.UID, user.Role, app.cfg.JWTIssuer, app.cfg.JWTSigningKey, app.cfg.AccessTTL, app.cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"user":          user,
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	r.POST("/v1/auth/signin", func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user, err := app.identity.SignIn(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			writeErr(c, err)
			return
		}
		tokens, err := auth.Issue(user.UID, user.Role, app.cfg.JWTIssuer, app.cfg.JWTSigningKey, app.cfg.AccessTTL, app.cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"user":          user,
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})
}

func (app *application) registerCommonRoutes(g *gin.RouterGroup) {
	g.GET("/me", func(c *gin.Context) {
		claims := auth.ClaimsFrom(c)
		profile, err := app.identity.Resolve(c.Request.Context(), claims.Subject)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if profile == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no profile"})
			return
		}
		c.JSON(http.StatusOK, profile)
	})
}

func (app *application) registerTeacherRoutes(g *gin.RouterGroup) {
	// Roster
	g.GET("/roster", func(c *gin.Context) {
		attendees, err := app.roster.List(c.Request.Context())
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"attendees": attendees})
	})

	g.POST("/roster", func(c *gin.Context) {
		var req struct {
			Name  string `json:"name" binding:"required"`
			Email string `json:"email" binding:"required,email"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		a, err := app.roster.Add(c.Request.Context(), req.Name, req.Email)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, a)
	})

	g.PUT("/roster/:id", func(c *gin.Context) {
		var req struct {
			Name  string `json:"name" binding:"required"`
			Email string `json:"email" binding:"required,email"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		a, err := app.roster.Edit(c.Request.Context(), c.Param("id"), req.Name, req.Email)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	})

	g.DELETE("/roster/:id", func(c *gin.Context) {
		archived, err := app.roster.SoftDelete(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, archived)
	})

	g.GET("/roster/archive", func(c *gin.Context) {
		archived, err := app.roster.ListArchived(c.Request.Context())
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"archived": archived})
	})

	g.POST("/roster/archive/:id/restore", func(c *gin.Context) {
		a, err := app.roster.Restore(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	})

	// Attendance ledger
	g.GET("/attendance/:date", func(c *gin.Context) {
		day, err := app.attendance.LoadDay(c.Request.Context(), c.Param("date"))
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, day)
	})

	g.PUT("/attendance/:date", func(c *gin.Context) {
		var req struct {
			Records map[string]attendance.Record `json:"records" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		day, err := app.attendance.SaveDay(c.Request.Context(), c.Param("date"), req.Records)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, day)
	})

	// Assignments
	g.GET("/assignments", func(c *gin.Context) {
		assignments, err := app.assignments.List(c.Request.Context())
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"assignments": assignments})
	})

	g.POST("/assignments", func(c *gin.Context) {
		var req struct {
			Title       string     `json:"title" binding:"required"`
			Description string     `json:"description"`
			DueDate     *time.Time `json:"due_date"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		a, err := app.assignments.Create(c.Request.Context(), req.Title, req.Description, req.DueDate)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, a)
	})

	g.GET("/assignments/:id", func(c *gin.Context) {
		a, err := app.assignments.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	})

	g.POST("/assignments/:id/sync", func(c *gin.Context) {
		a, err := app.assignments.SyncRoster(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	})

	g.POST("/assignments/:id/bulk-status", func(c *gin.Context) {
		var req struct {
			Status assignment.Status `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		a, err := app.assignments.BulkSetStatus(c.Request.Context(), c.Param("id"), req.Status)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	})

	g.PUT("/assignments/:id/status-map", func(c *gin.Context) {
		var req struct {
			StatusMap map[string]assignment.Entry `json:"status_map" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		a, err := app.assignments.SaveStatusMap(c.Request.Context(), c.Param("id"), req.StatusMap)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	})

	// Submission review
	g.GET("/assignments/:id/submissions", func(c *gin.Context) {
		subs, err := app.submissions.ListByAssignment(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"submissions": subs})
	})

	g.GET("/assignments/:id/submissions/stream", app.handleSubmissionStream)

	g.POST("/submissions/:id/grade", func(c *gin.Context) {
		var req struct {
			Grade    string `json:"grade" binding:"required"`
			Feedback string `json:"feedback"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sub, err := app.submissions.Grade(c.Request.Context(), c.Param("id"), req.Grade, req.Feedback)
		if err != nil {
			writeErr(c, err)
			return
		}
		app.publishSubmissionEvent(c, "graded", sub)
		c.JSON(http.StatusOK, sub)
	})

	app.registerReportRoutes(g)
}

func (app *application) registerStudentRoutes(g *gin.RouterGroup) {
	g.GET("/attendance", func(c *gin.Context) {
		profile, ok := app.currentStudent(c)
		if !ok {
			return
		}
		from, to := c.Query("from"), c.Query("to")
		days, err := app.attendance.ListRange(c.Request.Context(), from, to)
		if err != nil {
			writeErr(c, err)
			return
		}
		// project out only this student's records
		type entry struct {
			Date   string            `json:"date"`
			Status attendance.Status `json:"status"`
			Note   string            `json:"note,omitempty"`
		}
		var history []entry
		summary := attendance.Summary{}
		for _, d := range days {
			rec, ok := d.Records[profile.User.StudentID]
			if !ok {
				continue
			}
			history = append(history, entry{Date: d.Date, Status: rec.Status, Note: rec.Note})
			switch rec.Status {
			case attendance.StatusPresent:
				summary.Present++
			case attendance.StatusAbsent:
				summary.Absent++
			case attendance.StatusLeave:
				summary.Leave++
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"history":    history,
			"summary":    summary,
			"percentage": report.Percentage(summary),
		})
	})

	g.GET("/assignments", func(c *gin.Context) {
		profile, ok := app.currentStudent(c)
		if !ok {
			return
		}
		assignments, err := app.assignments.List(c.Request.Context())
		if err != nil {
			writeErr(c, err)
			return
		}
		type view struct {
			ID          string            `json:"id"`
			Title       string            `json:"title"`
			Description string            `json:"description,omitempty"`
			DueDate     *time.Time        `json:"due_date,omitempty"`
			Entry       *assignment.Entry `json:"entry,omitempty"`
		}
		var res []view
		for _, a := range assignments {
			v := view{ID: a.ID, Title: a.Title, Description: a.Description, DueDate: a.DueDate}
			if entry, ok := a.StatusMap[profile.User.StudentID]; ok {
				v.Entry = &entry
			}
			res = append(res, v)
		}
		c.JSON(http.StatusOK, gin.H{"assignments": res})
	})

	g.POST("/assignments/:id/submit", func(c *gin.Context) {
		profile, ok := app.currentStudent(c)
		if !ok {
			return
		}
		var req struct {
			Notes string `json:"notes"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sub, err := app.submissions.Submit(c.Request.Context(), c.Param("id"), profile.User.StudentID, req.Notes)
		if err != nil {
			writeErr(c, err)
			return
		}
		app.publishSubmissionEvent(c, "submitted", sub)
		c.JSON(http.StatusAccepted, sub)
	})

	g.POST("/assignments/:id/file", func(c *gin.Context) {
		profile, ok := app.currentStudent(c)
		if !ok {
			return
		}
		if app.files == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "attachment storage not configured"})
			return
		}
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "read file failed"})
			return
		}
		result, err := app.files.UploadBytes(data, header.Filename)
		if err != nil {
			log.Printf("attachment upload failed: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "file upload failed"})
			return
		}
		entry, err := app.assignments.AttachFile(c.Request.Context(), c.Param("id"), profile.User.StudentID, result.SecureURL, header.Filename)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, entry)
	})

	g.GET("/submissions/:assignmentID", func(c *gin.Context) {
		profile, ok := app.currentStudent(c)
		if !ok {
			return
		}
		id := submission.CompositeID(c.Param("assignmentID"), profile.User.StudentID)
		sub, err := app.submissions.Get(c.Request.Context(), id)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, sub)
	})
}

func (app *application) registerReportRoutes(g *gin.RouterGroup) {
	g.GET("/reports/monthly", func(c *gin.Context) {
		days, ok := app.rangeDays(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"months": report.Monthly(days)})
	})

	g.GET("/reports/students", func(c *gin.Context) {
		days, ok := app.rangeDays(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"students": report.PerStudent(days)})
	})

	g.GET("/reports/day.csv", func(c *gin.Context) {
		day, err := app.attendance.LoadDay(c.Request.Context(), c.Query("date"))
		if err != nil {
			writeErr(c, err)
			return
		}
		names, err := app.attendeeNames(c)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=attendance-%s.csv", day.Date))
		if err := report.WriteDayCSV(c.Writer, day, names); err != nil {
			log.Printf("csv export failed: %v", err)
		}
	})

	g.GET("/reports/range.csv", func(c *gin.Context) {
		days, ok := app.rangeDays(c)
		if !ok {
			return
		}
		names, err := app.attendeeNames(c)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", "attachment; filename=attendance.csv")
		if err := report.WriteRangeCSV(c.Writer, days, names); err != nil {
			log.Printf("csv export failed: %v", err)
		}
	})

	g.GET("/reports/monthly.xlsx", func(c *gin.Context) {
		days, ok := app.rangeDays(c)
		if !ok {
			return
		}
		names, err := app.attendeeNames(c)
		if err != nil {
			writeErr(c, err)
			return
		}
		wb, err := report.MonthlyWorkbook(days, names)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=attendance.xlsx")
		if err := wb.Write(c.Writer); err != nil {
			log.Printf("xlsx export failed: %v", err)
		}
	})
}

// handleSubmissionStream pushes review feed events as server-sent events.
func (app *application) handleSubmissionStream(c *gin.Context) {
	events, closeFeed, err := app.feed.Subscribe(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "feed unavailable"})
		return
	}
	defer closeFeed()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Stream(func(w io.Writer) bool {
		select {
		case evt, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("submission", evt)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// currentStudent resolves the caller into a student profile or writes the
// error response itself.
func (app *application) currentStudent(c *gin.Context) (*identity.Profile, bool) {
	claims := auth.ClaimsFrom(c)
	profile, err := app.identity.Resolve(c.Request.Context(), claims.Subject)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	if profile == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no profile"})
		return nil, false
	}
	if profile.User.StudentID == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "no roster entry linked to this account"})
		return nil, false
	}
	return profile, true
}

// rangeDays loads ledgers for the from/to query params or writes the error.
func (app *application) rangeDays(c *gin.Context) ([]attendance.Day, bool) {
	days, err := app.attendance.ListRange(c.Request.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		writeErr(c, err)
		return nil, false
	}
	return days, true
}

// attendeeNames maps attendee ids to display names, archived entries
// included so exports keep naming soft-deleted students.
func (app *application) attendeeNames(c *gin.Context) (map[string]string, error) {
	names := map[string]string{}
	active, err := app.roster.List(c.Request.Context())
	if err != nil {
		return nil, err
	}
	for _, a := range active {
		names[a.ID] = a.Name
	}
	archived, err := app.roster.ListArchived(c.Request.Context())
	if err != nil {
		return nil, err
	}
	for _, a := range archived {
		if _, ok := names[a.OriginalID]; !ok {
			names[a.OriginalID] = a.Name
		}
	}
	return names, nil
}

func (app *application) publishSubmissionEvent(c *gin.Context, typ string, sub submission.Submission) {
	ctx := c.Request.Context()
	if err := app.queue.Publish(ctx, queue.Message{Type: typ, Body: []byte(sub.ID)}); err != nil {
		log.Printf("queue publish failed: %v", err)
	}
	evt := feed.Event{
		Type:         typ,
		AssignmentID: sub.AssignmentID,
		SubmissionID: sub.ID,
		StudentID:    sub.StudentID,
	}
	if err := app.feed.Publish(ctx, evt); err != nil {
		log.Printf("feed publish failed: %v", err)
	}
}
