package schedule

import "time"

// timeNow is a variable that can be mocked for testing
var timeNow = time.Now
