package authstate

const (
	PathHome            = "/"
	PathLogin           = "/login"
	PathCompleteProfile = "/complete-profile"
)

// Navigator moves the user interface to another entry point.
type Navigator interface {
	Navigate(path string)
}

type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) {
	f(path)
}

type noopNavigator struct{}

func (noopNavigator) Navigate(string) {}
