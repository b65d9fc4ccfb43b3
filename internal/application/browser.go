package application

type Browser interface {
	Open(url string) error
}
