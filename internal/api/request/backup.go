package request

type CreateBackup struct {
	Name        string   `json:"name" validate:"max=128"`
	Description string   `json:"description" validate:"max=1024"`
	Tags        []string `json:"tags" validate:"max=16,dive,max=64"`
}
