package s3stage

import (
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesOptions(t *testing.T) {
	st, err := New(OptRegion("us-west-2"))
	require.NoError(t, err)

	assert.Equal(t, "us-west-2", st.region)
	assert.Equal(t, "us-west-2", aws.StringValue(st.sess.Config.Region))
	assert.NotNil(t, st.s3)
	assert.NotNil(t, st.downloader)
	assert.NotNil(t, st.uploader)
}

func TestNewDefaultRegion(t *testing.T) {
	st, err := New()
	require.NoError(t, err)
	assert.Empty(t, st.region)
}
