package supervisor

import (
	"log"
	"os"
	"os/signal"
	"syscall"
)

// InstallSignalHandler mirrors cmd/game-server/main.go's graceful-shutdown
// goroutine: SIGINT/SIGTERM/SIGHUP/SIGQUIT set the shared cancel token;
// SIGUSR1 dumps one status line per worker without cancelling anything.
// Returns a stop function that releases the signal subscription.
func (s *Supervisor) InstallSignalHandler() (stop func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT, syscall.SIGUSR1)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigChan:
				switch sig {
				case syscall.SIGUSR1:
					for _, line := range s.StatusLines() {
						log.Println(line)
					}
				default:
					log.Printf("supervisor: received %s, cancelling", sig)
					s.Cancel()
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}
