// Package task provides HTTP handlers for assigned tasks and submissions.
package task

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"InternHub-backend/internal/apperror"
	"InternHub-backend/internal/model"
	"InternHub-backend/internal/tasks"
	"InternHub-backend/internal/utilities"
)

// TaskController handles task related endpoints
type TaskController struct {
	Tasks *tasks.Service
	Log   logrus.FieldLogger
}

// NewTaskController creates a new instance of TaskController.
func NewTaskController(svc *tasks.Service, log logrus.FieldLogger) *TaskController {
	return &TaskController{Tasks: svc, Log: log}
}

// AssignRequest describes a new task.
type AssignRequest struct {
	InternshipID uint      `json:"internship_id" binding:"required"`
	ApplicantID  uuid.UUID `json:"applicant_id" binding:"required"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Domain       string    `json:"domain"`
	DueDate      time.Time `json:"due_date"`
}

// StatusRequest is an admin task status change.
type StatusRequest struct {
	Status model.TaskStatus `json:"status" binding:"required"`
}

// SubmissionRequest is work submitted for a task.
type SubmissionRequest struct {
	FileLinks      []string `json:"file_links"`
	ProjectFileRef string   `json:"project_file_ref"`
}

// SubmissionReviewRequest is the admin verdict on a submission.
type SubmissionReviewRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

// AssignTask gives a task to an approved applicant.
// @Summary Assign task
// @Description Only admin can access this endpoint
// @Tags Task
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param task body AssignRequest true "Task"
// @Success 201 {object} model.AssignedTask
// @Failure 403 {object} utilities.ErrorResponse "Applicant is not approved for the internship"
// @Router /admin/tasks [post]
func (tc *TaskController) AssignTask(c *gin.Context) {
	var req AssignRequest
	if err := utilities.BindJSON(c, &req); err != nil {
		utilities.RespondError(c, tc.Log, err)
		return
	}
	task, err := tc.Tasks.AssignTask(c.Request.Context(), tasks.AssignInput{
		InternshipID: req.InternshipID,
		ApplicantID:  req.ApplicantID,
		Title:        req.Title,
		Description:  req.Description,
		Domain:       req.Domain,
		DueDate:      req.DueDate,
	})
	if err != nil {
		utilities.RespondError(c, tc.Log, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// ListInternshipTasks lists every task of an internship.
// @Summary List tasks of an internship
// @Tags Task
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Internship ID"
// @Success 200 {array} model.TaskView
// @Router /admin/internships/{id}/tasks [get]
func (tc *TaskController) ListInternshipTasks(c *gin.Context) {
	id, err := utilities.ParamID(c, "id")
	if err != nil {
		utilities.RespondError(c, tc.Log, err)
		return
	}
	views, err := tc.Tasks.ListForInternship(c.Request.Context(), id)
	if err != nil {
		utilities.RespondError(c, tc.Log, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// SetTaskStatus changes the status of a task.
// @Summary Update task status
// @Description overdue is derived and cannot be set
// @Tags Task
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Task ID"
// @Param status body StatusRequest true "New status"
// @Success 200 {object} model.TaskView
// @Failure 409 {object} utilities.ErrorResponse "Transition not allowed"
// @Router /admin/tasks/{id}/status [patch]
func (tc *TaskController) SetTaskStatus(c *gin.Context) {
	id, err := utilities.ParamID(c, "id")
	if err != nil {
		utilities.RespondError(c, tc.Log, err)
		return
	}
	var req StatusRequest
	if err := utilities.BindJSON(c, &req); err != nil {
		utilities.RespondError(c, tc.Log, err)
		return
	}
	task, err := tc.Tasks.SetTaskStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		utilities.RespondError(c, tc.Log, err)
		return
	}
	c.JSON(http.StatusOK, model.NewTaskView(*task, time.Now()))
}

// ListSubmissions lists the submissions of an internship.
// @Summary List submissions
// @Tags Task
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Internship ID"
// @Param pending query bool false "Only submissions waiting for review"
// @Success 200 {array} model.TaskSubmission
// @Router /admin/internships/{id}/submissions [get]
func (tc *TaskController) ListSubmissions(c *gin.Context) {
	id, err := utilities.ParamID(c, "id")
	if err != nil {
		utilities.RespondError(c, tc.Log, err)
		return
	}
	pending, _ := strconv.ParseBool(c.DefaultQuery("pending", "false"))
	subs, err := tc.Tasks.ListSubmissions(c.Request.Context(), id, pending)
	if err != nil {
		utilities.RespondError(c, tc.Log, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

// ReviewSubmission accepts or rejects a submission.
// @Summary Review submission
// @Description Accepting completes the task, rejecting returns it to the applicant and requires a note
// @Tags Task
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Submission ID"
// @Param verdict body SubmissionReviewRequest true "Verdict"
// @Success 200 {object} model.TaskSubmission
// @Router /admin/submissions/{id}/review [post]
func (tc *TaskController) ReviewSubmission(c *gin.Context) {
	id, err := utilities.ParamID(c, "id")
	if err != nil {
		utilities.RespondError(c, tc.Log, err)
		return
	}
	var req SubmissionReviewRequest
	if err := utilities.BindJSON(c, &req); err != nil {
		utilities.RespondError(c, tc.Log, err)
		return
	}
	sub, err := tc.Tasks.ReviewSubmission(c.Request.Context(), tasks.SubmissionReviewInput{
		SubmissionID: id,
		Approve:      req.Approve,
		Note:         req.Note,
	})
	if err != nil {
		utilities.RespondError(c, tc.Log, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// ListMyTasks lists the tasks of the caller.
// @Summary List my tasks
// @Tags Task
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param internship_id query int false "Restrict to one internship"
// @Success 200 {array} model.TaskView
// @Router /tasks/me [get]
func (tc *TaskController) ListMyTasks(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}
	var internshipID uint
	if raw := c.Query("internship_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			utilities.RespondError(c, tc.Log, apperror.Validation("Invalid internship_id", map[string]string{"internship_id": "Must be a positive integer"}))
			return
		}
		internshipID = uint(id)
	}
	views, err := tc.Tasks.ListForApplicant(c.Request.Context(), user.ID, internshipID)
	if err != nil {
		utilities.RespondError(c, tc.Log, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// StartTask moves an own task to in progress.
// @Summary Start task
// @Tags Task
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Task ID"
// @Success 200 {object} model.TaskView
// @Failure 403 {object} utilities.ErrorResponse "Task is not assigned to you"
// @Router /tasks/{id}/start [post]
func (tc *TaskController) StartTask(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}
	id, err := utilities.ParamID(c, "id")
	if err != nil {
		utilities.RespondError(c, tc.Log, err)
		return
	}
	task, err := tc.Tasks.StartTask(c.Request.Context(), user.ID, id)
	if err != nil {
		utilities.RespondError(c, tc.Log, err)
		return
	}
	c.JSON(http.StatusOK, model.NewTaskView(*task, time.Now()))
}

// SubmitTask records work for an own task.
// @Summary Submit task work
// @Description Up to 5 http(s) links and/or an uploaded project file. A later submission replaces the earlier one.
// @Tags Task
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Task ID"
// @Param submission body SubmissionRequest true "Work"
// @Success 200 {object} model.TaskSubmission
// @Failure 403 {object} utilities.ErrorResponse "Task is not assigned to you"
// @Router /tasks/{id}/submission [post]
func (tc *TaskController) SubmitTask(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}
	id, err := utilities.ParamID(c, "id")
	if err != nil {
		utilities.RespondError(c, tc.Log, err)
		return
	}
	var req SubmissionRequest
	if err := utilities.BindJSON(c, &req); err != nil {
		utilities.RespondError(c, tc.Log, err)
		return
	}
	sub, err := tc.Tasks.RecordSubmission(c.Request.Context(), tasks.SubmissionInput{
		AssignedTaskID: id,
		ApplicantID:    user.ID,
		FileLinks:      req.FileLinks,
		ProjectFileRef: req.ProjectFileRef,
	})
	if err != nil {
		utilities.RespondError(c, tc.Log, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}
