// +build !darwin

package cli

func OSSpecificInit() {
}
