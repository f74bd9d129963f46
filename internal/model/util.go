package model

// MigrateAble is array of model instance, use for migrating database
var MigrateAble []interface{}

func init() {
	MigrateAble = append(
		MigrateAble,
		&User{},
		&File{},
		&Internship{},
		&Application{},
		&ApplicationReview{},
		&AssignedTask{},
		&TaskSubmission{},
		&Certificate{},
		&CertificateRevocation{},
		&Notification{},
	)
}
