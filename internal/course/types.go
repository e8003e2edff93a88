package course

import "time"

// Registration links a student enrollment to the owning account. Email is
// copied from the session at creation time and is never client-supplied.
type Registration struct {
	ID          string    `json:"id"`
	StudentName string    `json:"studentName"`
	StudentID   string    `json:"studentID"`
	CourseName  string    `json:"courseName"`
	CourseID    string    `json:"courseID"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"created_at"`
}
