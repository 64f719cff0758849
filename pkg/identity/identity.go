package identity

import (
	"os"

	"github.com/holo2k/AdvertControl-sub000/pkg/file"
)

// ScreenIdentity holds the screen's permanent identifier. An empty ScreenID
// means the device is not paired.
type ScreenIdentity struct {
	ScreenID string `json:"screen_id"`
}

// ScreenInfoInterface defines methods for managing the persisted screen identity.
type ScreenInfoInterface interface {
	LoadScreenInfo() error
	GetScreenID() string
	SaveScreenID(screenID string) error
	ClearScreenID() error
}

// ScreenInfo manages the screen identity and its associated file operations.
type ScreenInfo struct {
	ScreenInfoFile string
	Identity       ScreenIdentity
	fileOps        file.FileOperations
}

// NewScreenInfo initializes a new ScreenInfo instance.
func NewScreenInfo(filePath string, fileOps file.FileOperations) ScreenInfoInterface {
	return &ScreenInfo{
		ScreenInfoFile: filePath,
		fileOps:        fileOps,
		Identity:       ScreenIdentity{},
	}
}

// LoadScreenInfo reads the identity file and populates the Identity field.
// A missing file is not an error, it simply means the device is unpaired.
func (s *ScreenInfo) LoadScreenInfo() error {
	err := s.fileOps.ReadJsonFile(s.ScreenInfoFile, &s.Identity)
	if err != nil {
		if os.IsNotExist(err) {
			s.Identity = ScreenIdentity{}
			return nil
		}
		return err
	}

	return nil
}

// GetScreenID returns the current screen ID. Empty denotes "unpaired".
func (s *ScreenInfo) GetScreenID() string {
	return s.Identity.ScreenID
}

// SaveScreenID updates the screen ID and writes it back to the file.
func (s *ScreenInfo) SaveScreenID(screenID string) error {
	s.Identity.ScreenID = screenID
	return s.fileOps.WriteJsonFile(s.ScreenInfoFile, s.Identity)
}

// ClearScreenID erases the stored identity. Called when the server no
// longer recognizes the screen id.
func (s *ScreenInfo) ClearScreenID() error {
	s.Identity = ScreenIdentity{}
	return s.fileOps.WriteJsonFile(s.ScreenInfoFile, s.Identity)
}
