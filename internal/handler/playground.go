package handler

import (
	"bytes"
	"html/template"
)

var playgroundTemplate = template.Must(template.New("playground").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8" />
  <title>GraphQL Playground</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/graphql-playground-react/build/static/css/index.css" />
  <script src="https://cdn.jsdelivr.net/npm/graphql-playground-react/build/static/js/middleware.js"></script>
</head>
<body>
  <div id="root"></div>
  <script>
    window.addEventListener('load', function () {
      var url = window.location.protocol + '//' + window.location.host + {{.}};
      var wsUrl = url.replace(/^http/, 'ws');
      GraphQLPlayground.init(document.getElementById('root'), {
        endpoint: url,
        subscriptionEndpoint: wsUrl
      });
    });
  </script>
</body>
</html>
`))

func playgroundPage(endpoint string) []byte {
	var buf bytes.Buffer
	if err := playgroundTemplate.Execute(&buf, endpoint); err != nil {
		return []byte(err.Error())
	}
	return buf.Bytes()
}
