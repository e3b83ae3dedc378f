package integration_test

const (
	// Patient related constants
	TestUserId        = 1
	TestUserFirstName = "Jane"
	TestUserLastName  = "Doe"
	TestUserEmail     = "jane@example.com"
	TestUserPassword  = "Test123!@#"

	OtherUserId       = 2
	OtherUserEmail    = "john@example.com"
	OtherUserPassword = "Other123!@#"

	// Doctor related constants
	TestDoctorId             = 1
	TestDoctorFirstName      = "Gregory"
	TestDoctorLastName       = "House"
	TestDoctorSpecialization = "Diagnostics"

	// Appointment related constants
	TestAppointmentId          = 1
	TestCancelledAppointmentId = 2
	TestOtherAppointmentId     = 3
	TestAppointmentReason      = "Annual check-up"

	TestAmount   = "150.00"
	TestCurrency = "USD"
)
