package web

import (
	"time"

	"github.com/freekieb7/calendar/internal/calendar"
	"github.com/freekieb7/calendar/internal/employee"
	"github.com/freekieb7/calendar/internal/security"
	"github.com/freekieb7/calendar/internal/util"

	"github.com/google/uuid"
)

type SecurityLevelResponse struct {
	Name  string `json:"name"`
	Rank  int    `json:"rank"`
	Label string `json:"label"`
}

func newSecurityLevelResponse(level security.Level) SecurityLevelResponse {
	return SecurityLevelResponse{
		Name:  level.String(),
		Rank:  level.Rank(),
		Label: level.Label(),
	}
}

type EmployeeResponse struct {
	ID            uuid.UUID             `json:"id"`
	Username      string                `json:"username"`
	FullName      string                `json:"full_name"`
	Email         string                `json:"email"`
	Department    string                `json:"department"`
	SecurityLevel SecurityLevelResponse `json:"security_level"`
	Active        bool                  `json:"active"`
}

func newEmployeeResponse(e employee.Employee) EmployeeResponse {
	return EmployeeResponse{
		ID:            e.ID,
		Username:      e.Username,
		FullName:      e.FullName,
		Email:         e.Email,
		Department:    e.Department,
		SecurityLevel: newSecurityLevelResponse(e.SecurityLevel),
		Active:        e.Active,
	}
}

type EventResponse struct {
	ID            uuid.UUID             `json:"id"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	StartTime     time.Time             `json:"start_time"`
	EndTime       time.Time             `json:"end_time"`
	Location      string                `json:"location"`
	CreatorID     uuid.UUID             `json:"creator_id"`
	SecurityLevel SecurityLevelResponse `json:"security_level"`
	// ViewerIDs is only disclosed to employees who may manage the event.
	ViewerIDs []uuid.UUID `json:"viewer_ids,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func newEventResponse(caller employee.Employee, event calendar.Event) EventResponse {
	res := EventResponse{
		ID:            event.ID,
		Title:         event.Title,
		Description:   event.Description,
		StartTime:     event.StartTime,
		EndTime:       event.EndTime,
		Location:      event.Location,
		CreatorID:     event.CreatorID,
		SecurityLevel: newSecurityLevelResponse(event.SecurityLevel),
		CreatedAt:     event.CreatedAt,
		UpdatedAt:     event.UpdatedAt,
	}
	if calendar.CanManage(caller, event) {
		res.ViewerIDs = event.Viewers.IDs()
	}
	return res
}

func newEventResponses(caller employee.Employee, events []calendar.Event) []EventResponse {
	res := make([]EventResponse, len(events))
	for i, event := range events {
		res[i] = newEventResponse(caller, event)
	}
	return res
}

type GrantResponse struct {
	EmployeeID uuid.UUID `json:"employee_id"`
	GrantedAt  time.Time `json:"granted_at"`
	GrantedBy  string    `json:"granted_by"`
}

type LoginResponse struct {
	Token     string           `json:"token"`
	TokenType string           `json:"token_type"`
	ExpiresIn int64            `json:"expires_in"`
	Employee  EmployeeResponse `json:"employee"`
}

// CreateEventRequest carries the security level as its rank (1..4).
type CreateEventRequest struct {
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	StartTime     time.Time          `json:"start_time"`
	EndTime       time.Time          `json:"end_time"`
	Location      string             `json:"location"`
	SecurityLevel util.Optional[int] `json:"security_level"`
	ViewerIDs     []uuid.UUID        `json:"viewer_ids"`
}

func (r CreateEventRequest) params() (calendar.CreateEventParams, error) {
	params := calendar.CreateEventParams{
		Title:       r.Title,
		Description: r.Description,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Location:    r.Location,
		ViewerIDs:   r.ViewerIDs,
	}
	if r.SecurityLevel.IsSet {
		level, err := security.FromRank(r.SecurityLevel.Val)
		if err != nil {
			return params, err
		}
		params.SecurityLevel = util.Some(level)
	}
	return params, nil
}

// UpdateEventRequest leaves absent fields untouched. A present viewer_ids
// replaces the whole grant set.
type UpdateEventRequest struct {
	Title         util.Optional[string]      `json:"title"`
	Description   util.Optional[string]      `json:"description"`
	StartTime     util.Optional[time.Time]   `json:"start_time"`
	EndTime       util.Optional[time.Time]   `json:"end_time"`
	Location      util.Optional[string]      `json:"location"`
	SecurityLevel util.Optional[int]         `json:"security_level"`
	ViewerIDs     util.Optional[[]uuid.UUID] `json:"viewer_ids"`
}

func (r UpdateEventRequest) params() (calendar.UpdateEventParams, error) {
	params := calendar.UpdateEventParams{
		Title:       r.Title,
		Description: r.Description,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Location:    r.Location,
	}
	if r.SecurityLevel.IsSet {
		level, err := security.FromRank(r.SecurityLevel.Val)
		if err != nil {
			return params, err
		}
		params.SecurityLevel = util.Some(level)
	}
	if r.ViewerIDs.IsSet {
		params.Viewers = util.Some(calendar.NewViewerSet(r.ViewerIDs.Val...))
	}
	return params, nil
}

func newEmployeeResponses(employees []employee.Employee) []EmployeeResponse {
	res := make([]EmployeeResponse, len(employees))
	for i, e := range employees {
		res[i] = newEmployeeResponse(e)
	}
	return res
}

// CreateEmployeeRequest carries the security level as its rank (1..4).
type CreateEmployeeRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	FullName      string `json:"full_name"`
	Email         string `json:"email"`
	Department    string `json:"department"`
	SecurityLevel int    `json:"security_level"`
}

func (r CreateEmployeeRequest) params() (employee.CreateParams, error) {
	level, err := security.FromRank(r.SecurityLevel)
	if err != nil {
		return employee.CreateParams{}, err
	}
	return employee.CreateParams{
		Username:      r.Username,
		Password:      r.Password,
		FullName:      r.FullName,
		Email:         r.Email,
		Department:    r.Department,
		SecurityLevel: level,
	}, nil
}

// UpdateEmployeeRequest leaves absent fields untouched.
type UpdateEmployeeRequest struct {
	FullName      util.Optional[string] `json:"full_name"`
	Email         util.Optional[string] `json:"email"`
	Department    util.Optional[string] `json:"department"`
	SecurityLevel util.Optional[int]    `json:"security_level"`
	Active        util.Optional[bool]   `json:"active"`
}

func (r UpdateEmployeeRequest) profile() (employee.UpdateProfileParams, bool) {
	params := employee.UpdateProfileParams{
		FullName:   r.FullName,
		Email:      r.Email,
		Department: r.Department,
	}
	return params, r.FullName.IsSet || r.Email.IsSet || r.Department.IsSet
}

// UpdatePasswordRequest needs CurrentPassword only when employees change
// their own password.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	Password        string `json:"password"`
}
