package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldUserID     = "user_id"
	FieldBillID     = "bill_id"
	FieldBillName   = "bill_name"
	FieldAmount     = "amount"
	FieldDueDate    = "due_date"
	FieldInstrument = "instrument_id"
	FieldCategory   = "category"
	FieldAdvanced   = "advanced"
	FieldSkipped    = "skipped"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentCLI     = "cli"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSweep   = "sweep"
)
