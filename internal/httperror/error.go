package httperror

type Error struct {
	Message string `json:"error" example:"there is no member matching your query"`
}

func New(err error) Error {
	return Error{
		Message: err.Error(),
	}
}

func NewFromString(s string) Error {
	return Error{
		Message: s,
	}
}
