package ingest

import (
	"fmt"

	"github.com/studentsystem/notify/notification"
)

// mapping describes how one upstream event type becomes a notification.
type mapping struct {
	category string
	priority notification.Priority
	channel  notification.Channel
	title    func(e InboundEvent) string
	body     func(e InboundEvent) string
}

// mappings is the event-type routing table. Unlisted event types are
// skipped and acknowledged.
var mappings = map[string]mapping{
	"StudentCreated": {
		category: notification.CategoryWelcome,
		priority: notification.PriorityMedium,
		channel:  notification.ChannelEmail,
		title:    func(e InboundEvent) string { return "Welcome!" },
		body: func(e InboundEvent) string {
			return fmt.Sprintf("Hello %s, your student account has been created.", e.field("firstName", "there"))
		},
	},
	"StudentUpdated": {
		category: notification.CategoryGeneral,
		priority: notification.PriorityLow,
		channel:  notification.ChannelInApp,
		title:    func(e InboundEvent) string { return "Profile Updated" },
		body:     func(e InboundEvent) string { return "Your student profile has been updated." },
	},
	"StudentDeleted": {
		category: notification.CategoryGeneral,
		priority: notification.PriorityLow,
		channel:  notification.ChannelEmail,
		title:    func(e InboundEvent) string { return "Account Removed" },
		body:     func(e InboundEvent) string { return "Your student account has been removed." },
	},

	"CourseCreated": {
		category: notification.CategoryCourseUpdate,
		priority: notification.PriorityMedium,
		channel:  notification.ChannelInApp,
		title:    func(e InboundEvent) string { return "New Course Available" },
		body: func(e InboundEvent) string {
			return fmt.Sprintf("The course %s is now available.", e.field("courseName", "you follow"))
		},
	},
	"CourseUpdated": {
		category: notification.CategoryCourseUpdate,
		priority: notification.PriorityMedium,
		channel:  notification.ChannelInApp,
		title:    func(e InboundEvent) string { return "Course Updated" },
		body: func(e InboundEvent) string {
			return fmt.Sprintf("The course %s has been updated.", e.field("courseName", "you follow"))
		},
	},
	"CourseDeleted": {
		category: notification.CategoryCourseUpdate,
		priority: notification.PriorityMedium,
		channel:  notification.ChannelInApp,
		title:    func(e InboundEvent) string { return "Course Cancelled" },
		body: func(e InboundEvent) string {
			return fmt.Sprintf("The course %s has been cancelled.", e.field("courseName", "you follow"))
		},
	},

	"GradePublished": {
		category: notification.CategoryGradeUpdate,
		priority: notification.PriorityHigh,
		channel:  notification.ChannelInApp,
		title:    func(e InboundEvent) string { return "Grade Published" },
		body: func(e InboundEvent) string {
			return fmt.Sprintf("A new grade is available for %s.", e.field("courseName", "your course"))
		},
	},
	"GradeUpdated": {
		category: notification.CategoryGradeUpdate,
		priority: notification.PriorityHigh,
		channel:  notification.ChannelInApp,
		title:    func(e InboundEvent) string { return "Grade Updated" },
		body: func(e InboundEvent) string {
			return fmt.Sprintf("Your grade for %s has been updated.", e.field("courseName", "your course"))
		},
	},

	"EnrollmentCreated": {
		category: notification.CategoryEnrollment,
		priority: notification.PriorityMedium,
		channel:  notification.ChannelInApp,
		title:    func(e InboundEvent) string { return "Enrollment Received" },
		body: func(e InboundEvent) string {
			return fmt.Sprintf("Your enrollment in %s has been received.", e.field("courseName", "the course"))
		},
	},
	"EnrollmentApproved": {
		category: notification.CategoryEnrollment,
		priority: notification.PriorityHigh,
		channel:  notification.ChannelInApp,
		title:    func(e InboundEvent) string { return "Enrollment Approved" },
		body: func(e InboundEvent) string {
			return fmt.Sprintf("Your enrollment in %s has been approved.", e.field("courseName", "the course"))
		},
	},
	"EnrollmentRejected": {
		category: notification.CategoryEnrollment,
		priority: notification.PriorityHigh,
		channel:  notification.ChannelInApp,
		title:    func(e InboundEvent) string { return "Enrollment Rejected" },
		body: func(e InboundEvent) string {
			return fmt.Sprintf("Your enrollment in %s has been rejected.", e.field("courseName", "the course"))
		},
	},
	"EnrollmentCompleted": {
		category: notification.CategoryEnrollment,
		priority: notification.PriorityHigh,
		channel:  notification.ChannelInApp,
		title:    func(e InboundEvent) string { return "Course Completed" },
		body: func(e InboundEvent) string {
			return fmt.Sprintf("Congratulations, you completed %s.", e.field("courseName", "the course"))
		},
	},

	"PasswordResetRequested": {
		category: notification.CategoryPasswordReset,
		priority: notification.PriorityHigh,
		channel:  notification.ChannelEmail,
		title:    func(e InboundEvent) string { return "Password Reset Requested" },
		body:     func(e InboundEvent) string { return "A password reset was requested for your account." },
	},
	"PasswordResetCompleted": {
		category: notification.CategoryPasswordReset,
		priority: notification.PriorityHigh,
		channel:  notification.ChannelEmail,
		title:    func(e InboundEvent) string { return "Password Changed" },
		body:     func(e InboundEvent) string { return "Your password has been changed." },
	},

	"AccountLocked": {
		category: notification.CategorySecurityAlert,
		priority: notification.PriorityUrgent,
		channel:  notification.ChannelEmail,
		title:    func(e InboundEvent) string { return "Account Locked" },
		body:     func(e InboundEvent) string { return "Your account has been locked after repeated failed sign-in attempts." },
	},
	"SuspiciousLogin": {
		category: notification.CategorySecurityAlert,
		priority: notification.PriorityUrgent,
		channel:  notification.ChannelEmail,
		title:    func(e InboundEvent) string { return "Suspicious Sign-In" },
		body: func(e InboundEvent) string {
			return fmt.Sprintf("A sign-in from an unrecognized location (%s) was detected.", e.field("location", "unknown"))
		},
	},
}

// mapEvent converts an upstream event into creation parameters. The second
// return is false for unknown event types.
func mapEvent(e InboundEvent) (notification.CreateParams, bool) {
	m, ok := mappings[e.EventType]
	if !ok {
		return notification.CreateParams{}, false
	}

	return notification.CreateParams{
		RecipientID:   e.RecipientID(),
		RecipientType: "student",
		Title:         m.title(e),
		Body:          m.body(e),
		Category:      m.category,
		Priority:      m.priority,
		Channel:       m.channel,
		SourceService: e.Source,
		CorrelationID: e.CorrelationID,
		Metadata:      e.Fields,
	}, true
}
