package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Run 封装 Bubble Tea 入口，阻塞直到用户退出。
func Run(opts Options) error {
	programOptions := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if opts.Config.AltScreen {
		programOptions = append(programOptions, tea.WithAltScreen())
	}
	if opts.Context != nil {
		programOptions = append(programOptions, tea.WithContext(opts.Context))
	}
	program := tea.NewProgram(New(opts), programOptions...)
	_, err := program.Run()
	return err
}
